package clustercfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kompox/pgcluster/domain/model"
	"gopkg.in/yaml.v3"
)

// Load reads dir/config.yml (or the file itself if path names a file) and
// decodes it. The cluster name defaults to the directory name when the
// document does not set cluster_name.
func Load(path string) (*model.Cluster, *Document, error) {
	file := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		file = filepath.Join(path, FileName)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: failed to read file %s: %v", model.ErrExternal, file, err)
		}
		return nil, nil, fmt.Errorf("failed to read file %s: %w", file, err)
	}
	c, doc, err := Parse(data, filepath.Base(filepath.Dir(file)))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", file, err)
	}
	doc.Path = file
	return c, doc, nil
}

// Parse decodes a config.yml document. fallbackName is used as the cluster
// name if the document has no cluster_name.
func Parse(data []byte, fallbackName string) (*model.Cluster, *Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to unmarshal YAML: %v", model.ErrConfiguration, err)
	}
	var r root
	if node.Kind == 0 {
		return nil, nil, fmt.Errorf("%w: empty cluster configuration", model.ErrConfiguration)
	}
	if err := node.Decode(&r); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to decode cluster configuration: %v", model.ErrConfiguration, err)
	}
	c, err := r.toModel(fallbackName)
	if err != nil {
		return nil, nil, err
	}
	return c, &Document{Node: &node, Raw: data}, nil
}

func (r *root) toModel(fallbackName string) (*model.Cluster, error) {
	name := r.ClusterName
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, fmt.Errorf("%w: cluster_name is not set", model.ErrConfiguration)
	}
	c := model.NewCluster(name, r.Architecture, r.Platform)
	for k, v := range r.Settings {
		c.Settings()[k] = v
	}
	for k, v := range r.ClusterVars {
		c.Group().Set(k, v)
	}

	defaults := c.InstanceDefaults()
	for k, v := range r.InstanceDefaults {
		if k == KeyVars {
			vars, err := asMap(v, "instance_defaults.vars")
			if err != nil {
				return nil, err
			}
			for vk, vv := range vars {
				defaults.Vars[vk] = vv
			}
			continue
		}
		defaults.Settings[k] = v
	}

	for idx, entry := range r.Locations {
		name, _ := entry[KeyName].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: locations[%d]: Name is required", model.ErrConfiguration, idx)
		}
		settings := map[string]any{}
		var vars map[string]any
		for k, v := range entry {
			switch k {
			case KeyName:
			case KeyVars:
				m, err := asMap(v, fmt.Sprintf("locations[%d].vars", idx))
				if err != nil {
					return nil, err
				}
				vars = m
			default:
				settings[k] = v
			}
		}
		if _, err := c.AddLocation(name, settings, vars); err != nil {
			return nil, fmt.Errorf("locations[%d]: %w", idx, err)
		}
	}

	for idx, entry := range r.Instances {
		if err := addInstance(c, idx, entry); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func addInstance(c *model.Cluster, idx int, entry map[string]any) error {
	name, _ := entry[KeyName].(string)
	if name == "" {
		return fmt.Errorf("%w: instances[%d]: Name is required", model.ErrConfiguration, idx)
	}
	location, _ := entry[KeyLocation].(string)
	if location == "" {
		locs := c.Locations()
		if len(locs) == 0 {
			return fmt.Errorf("%w: instances[%d] (%s): location is required", model.ErrConfiguration, idx, name)
		}
		location = locs[0].Name()
	}
	opts := model.InstanceOptions{Settings: map[string]any{}}
	for k, v := range entry {
		switch k {
		case KeyName, KeyLocation:
		case KeyNode:
			id, ok := v.(int)
			if !ok {
				return fmt.Errorf("%w: instances[%d] (%s): node must be an integer, got %v", model.ErrConfiguration, idx, name, v)
			}
			opts.NodeID = id
		case KeyRole:
			roles, err := asRoles(v)
			if err != nil {
				return fmt.Errorf("%w: instances[%d] (%s): %v", model.ErrConfiguration, idx, name, err)
			}
			opts.Roles = roles
		case KeyVars:
			m, err := asMap(v, fmt.Sprintf("instances[%d].vars", idx))
			if err != nil {
				return err
			}
			opts.Vars = m
		default:
			opts.Settings[k] = v
		}
	}
	if _, err := c.AddInstance(name, location, opts); err != nil {
		return fmt.Errorf("instances[%d]: %w", idx, err)
	}
	return nil
}

func asMap(v any, where string) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", model.ErrConfiguration, where, v)
	}
}

// asRoles accepts either a single role name or a list of role names.
func asRoles(v any) ([]string, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{r}, nil
	case []any:
		out := make([]string, 0, len(r))
		for _, e := range r {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("role must be a string, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("role must be a string or a list, got %T", v)
	}
}
