// Package hostnames produces host names for new instances, either by
// running an external helper or from a simple numbered sequence.
package hostnames

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
)

// Exec runs an external helper once per request:
//
//	<Command> <Args...> --count N [--prefix P]
//
// The helper prints one host per line: a name optionally followed by up to
// two addresses, separated by white space.
type Exec struct {
	Command string
	Args    []string
}

func (e *Exec) Hostnames(ctx context.Context, count int, prefix string) ([]domain.Host, error) {
	args := append(append([]string{}, e.Args...), "--count", strconv.Itoa(count))
	if prefix != "" {
		args = append(args, "--prefix", prefix)
	}
	logging.FromContext(ctx).Debug(ctx, "running host name helper", "command", e.Command, "args", args)

	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with %d: %s", model.ErrExternal, e.Command, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExternal, e.Command, err)
	}
	hosts, err := Parse(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExternal, e.Command, err)
	}
	if len(hosts) < count {
		return nil, fmt.Errorf("%w: %s returned %d host names, %d requested", model.ErrExternal, e.Command, len(hosts), count)
	}
	return hosts[:count], nil
}

// Parse reads helper output. Blank lines are ignored.
func Parse(out []byte) ([]domain.Host, error) {
	var hosts []domain.Host
	sc := bufio.NewScanner(bytes.NewReader(out))
	for n := 1; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected a name and at most two addresses, got %q", n, sc.Text())
		}
		hosts = append(hosts, domain.Host{Name: fields[0], Addresses: fields[1:]})
	}
	return hosts, sc.Err()
}

// Sequence names hosts <prefix>1, <prefix>2, ... skipping names in Taken.
type Sequence struct {
	Taken func(name string) bool
}

// DefaultPrefix is used when no prefix is requested.
const DefaultPrefix = "node"

func (s *Sequence) Hostnames(_ context.Context, count int, prefix string) ([]domain.Host, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	out := make([]domain.Host, 0, count)
	for n := 1; len(out) < count; n++ {
		name := prefix + strconv.Itoa(n)
		if s.Taken != nil && s.Taken(name) {
			continue
		}
		out = append(out, domain.Host{Name: name})
	}
	return out, nil
}

var (
	_ domain.HostnamePort = (*Exec)(nil)
	_ domain.HostnamePort = (*Sequence)(nil)
)
