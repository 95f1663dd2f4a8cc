package clustercfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kompox/pgcluster/domain/model"
	"gopkg.in/yaml.v3"
)

// SiblingConfigs returns the config.yml files of the clusters next to
// clusterDir (../*/config.yml), excluding clusterDir's own.
func SiblingConfigs(clusterDir string) ([]string, error) {
	abs, err := filepath.Abs(clusterDir)
	if err != nil {
		return nil, fmt.Errorf("resolving cluster directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(abs), "*", FileName))
	if err != nil {
		return nil, err
	}
	own := filepath.Join(abs, FileName)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m != own {
			out = append(out, m)
		}
	}
	return out, nil
}

// ScanSubnets returns every subnet recorded in the given config.yml files,
// under instances, locations or instance_defaults. The files are read
// without building a cluster, so documents from other versions of the tool
// are still usable.
func ScanSubnets(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", model.ErrExternal, p, err)
		}
		var doc struct {
			Locations        []map[string]any `yaml:"locations"`
			InstanceDefaults map[string]any   `yaml:"instance_defaults"`
			Instances        []map[string]any `yaml:"instances"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %v", model.ErrExternal, p, err)
		}
		entries := append(append([]map[string]any{}, doc.Locations...), doc.Instances...)
		entries = append(entries, doc.InstanceDefaults)
		for _, e := range entries {
			if s, ok := e[KeySubnet].(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}
