package cluster

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
	"github.com/kompox/pgcluster/internal/transmogrify"
	"github.com/kompox/pgcluster/usecase/transmogrifiers"
)

// Reconfigure modes.
const (
	ModeApply    = "apply"
	ModeDescribe = "describe"
	ModeCheck    = "check"
)

const (
	optionDescribe = "describe"
	optionCheck    = "check"
	optionOutput   = "output"
	optionDiff     = "diff"
)

// BaseOptions are the options reconfigure understands regardless of which
// transmogrifiers are selected.
func BaseOptions() []transmogrify.Option {
	return []transmogrify.Option{
		{Name: optionDescribe, Kind: transmogrify.KindBool, Usage: "describe the changes without making them"},
		{Name: optionCheck, Kind: transmogrify.KindBool, Usage: "check that the changes can be made without making them"},
		{Name: optionOutput, Kind: transmogrify.KindString, Usage: "write the result to this file instead of config.yml"},
		{Name: optionDiff, Kind: transmogrify.KindBool, Usage: "show a unified diff of the configuration"},
	}
}

// ReconfigureInput carries the raw reconfigure command line.
type ReconfigureInput struct {
	// Dir is the cluster directory. When empty it is taken from the single
	// positional argument in Args.
	Dir string `json:"dir"`
	// Args are the unparsed options.
	Args []string `json:"args"`
}

// ReconfigureOutput reports what Reconfigure did.
type ReconfigureOutput struct {
	Mode string `json:"mode"`
	// Selected names the transmogrifiers chosen from the arguments that
	// apply to the cluster.
	Selected []string `json:"selected"`
	// Description is set in describe mode.
	Description string `json:"description,omitempty"`
	// Check holds warnings and errors. It is set in every mode.
	Check *transmogrify.CheckResult `json:"check,omitempty"`
	// Path is the written document in apply mode.
	Path string `json:"path,omitempty"`
	// Changed reports whether the written document differs from the
	// original.
	Changed bool `json:"changed"`
	// Diff is set in apply mode when --diff was given.
	Diff string `json:"diff,omitempty"`
}

// Reconfigure evolves an existing cluster configuration through the
// transmogrifiers selected by in.Args.
func (u *UseCase) Reconfigure(ctx context.Context, in *ReconfigureInput) (*ReconfigureOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: missing input", model.ErrConfiguration)
	}
	log := logging.FromContext(ctx)
	sel, err := transmogrify.Select("reconfigure", transmogrifiers.Registry(u.catalog()), in.Args, BaseOptions())
	if err != nil {
		return nil, err
	}

	dir := in.Dir
	pos := sel.Args.Positional()
	switch {
	case dir == "" && len(pos) == 1:
		dir = pos[0]
	case dir == "" && len(pos) == 0:
		return nil, fmt.Errorf("%w: cluster directory is required", model.ErrConfiguration)
	case len(pos) > 0 && (dir != "" || len(pos) > 1):
		return nil, fmt.Errorf("%w: unexpected arguments: %s", model.ErrConfiguration, strings.Join(pos, " "))
	}

	out := &ReconfigureOutput{Mode: ModeApply}
	describe, check := sel.Args.Bool(optionDescribe), sel.Args.Bool(optionCheck)
	switch {
	case describe && check:
		return nil, fmt.Errorf("%w: --describe and --check are mutually exclusive", model.ErrConfiguration)
	case describe:
		out.Mode = ModeDescribe
	case check:
		out.Mode = ModeCheck
	}
	if len(sel.Transmogrifiers) == 0 {
		return nil, fmt.Errorf("%w: no changes requested", model.ErrConfiguration)
	}

	c, original, err := u.Repos.Clusters.Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	for _, t := range sel.Transmogrifiers {
		if t.IsApplicable(c) {
			out.Selected = append(out.Selected, t.Name())
		}
	}
	log.Debug(ctx, "transmogrifiers selected", "cluster", c.Name(), "mode", out.Mode, "selected", out.Selected)

	switch out.Mode {
	case ModeDescribe:
		out.Check = transmogrify.Check(c, sel.Transmogrifiers)
		out.Description = transmogrify.Describe(c, sel.Transmogrifiers).String()
		return out, nil
	case ModeCheck:
		out.Check = transmogrify.Check(c, sel.Transmogrifiers)
		if out.Check.HasErrors() {
			return out, fmt.Errorf("%w: check failed", model.ErrConfiguration)
		}
		return out, nil
	}

	out.Check, err = transmogrify.Apply(ctx, c, sel.Transmogrifiers)
	if err != nil {
		return out, err
	}
	out.Path = dir
	if o := sel.Args.String(optionOutput); o != "" {
		out.Path = o
	}
	written, err := u.Repos.Clusters.Save(ctx, out.Path, c, original)
	if err != nil {
		return out, err
	}
	out.Changed = !bytes.Equal(original, written)
	if sel.Args.Bool(optionDiff) {
		out.Diff = unifiedDiff("config.yml", original, written)
	}
	log.Info(ctx, "cluster reconfigured", "cluster", c.Name(), "path", out.Path, "changed", out.Changed)
	return out, nil
}
