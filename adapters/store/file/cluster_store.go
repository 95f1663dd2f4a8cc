// Package file stores cluster configuration documents on the local file
// system.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kompox/pgcluster/config/clustercfg"
	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
)

// ClusterStore reads and writes <dir>/config.yml.
type ClusterStore struct{}

func NewClusterStore() *ClusterStore { return &ClusterStore{} }

// resolve maps a cluster directory to its document; any other path is
// taken as the document itself.
func resolve(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, clustercfg.FileName)
	}
	if filepath.Ext(path) == "" {
		return filepath.Join(path, clustercfg.FileName)
	}
	return path
}

func (s *ClusterStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(resolve(path))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", model.ErrExternal, err)
	}
}

func (s *ClusterStore) Load(_ context.Context, path string) (*model.Cluster, []byte, error) {
	c, doc, err := clustercfg.Load(resolve(path))
	if err != nil {
		return nil, nil, err
	}
	return c, doc.Raw, nil
}

// Save writes the document to a temporary file in the target directory and
// renames it into place, so readers see either the old or the new file.
func (s *ClusterStore) Save(_ context.Context, path string, c *model.Cluster, original []byte) ([]byte, error) {
	var ref *yaml.Node
	if len(original) > 0 {
		var n yaml.Node
		if err := yaml.Unmarshal(original, &n); err == nil {
			ref = &n
		}
	}
	data, err := clustercfg.Marshal(c, ref)
	if err != nil {
		return nil, err
	}
	target := resolve(path)
	if err := writeAtomic(target, data); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", model.ErrExternal, target, err)
	}
	return data, nil
}

func (s *ClusterStore) Siblings(_ context.Context, path string) ([]string, error) {
	return clustercfg.SiblingConfigs(filepath.Dir(resolve(path)))
}

func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

var _ domain.ClusterStore = (*ClusterStore)(nil)
