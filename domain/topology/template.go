package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kompox/pgcluster/domain/model"
)

type templateDoc struct {
	Instances []templateInstance `yaml:"instances"`
}

type templateInstance struct {
	Name     string         `yaml:"name"`
	Node     int            `yaml:"node"`
	Location string         `yaml:"location"`
	Role     yaml.Node      `yaml:"role"`
	Vars     map[string]any `yaml:"vars"`
	Settings map[string]any `yaml:",inline"`
}

// ApplyTemplate reads a rendered topology template and returns its
// instances. The document must have an instances list whose entries carry a
// location and a role (a string or a list); name, node and vars are
// optional and any other key becomes an instance setting.
func ApplyTemplate(data []byte) ([]InstanceSpec, error) {
	var doc templateDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: topology template: %v", model.ErrConfiguration, err)
	}
	if len(doc.Instances) == 0 {
		return nil, fmt.Errorf("%w: topology template has no instances", model.ErrConfiguration)
	}
	specs := make([]InstanceSpec, 0, len(doc.Instances))
	for i, ti := range doc.Instances {
		if ti.Location == "" {
			return nil, fmt.Errorf("%w: topology template: instance %d has no location", model.ErrConfiguration, i)
		}
		roles, err := templateRoles(&ti.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: topology template: instance %d: %v", model.ErrConfiguration, i, err)
		}
		specs = append(specs, InstanceSpec{
			Name:     ti.Name,
			NodeID:   ti.Node,
			Location: ti.Location,
			Roles:    roles,
			Settings: ti.Settings,
			Vars:     ti.Vars,
		})
	}
	return specs, nil
}

func templateRoles(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, fmt.Errorf("role is required")
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		var roles []string
		if err := n.Decode(&roles); err != nil {
			return nil, err
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("role is required")
		}
		return roles, nil
	default:
		return nil, fmt.Errorf("role must be a string or a list")
	}
}
