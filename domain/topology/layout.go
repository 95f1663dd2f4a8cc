package topology

import (
	"fmt"
	"maps"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
)

// InstanceSpec is a planned instance. Name may be empty, in which case a
// generated host name is used.
type InstanceSpec struct {
	Name     string
	NodeID   int
	Location string
	Roles    []string
	Settings map[string]any
	Vars     map[string]any
}

// Layout is the shape of a generated topology.
type Layout struct {
	// DataNodesPerLocation is the number of data nodes in each location
	// that is not witness-only. Zero selects the architecture default.
	DataNodesPerLocation int
	// ProxyNodesPerLocation adds dedicated proxy instances. With zero, the
	// proxy role (if the architecture has one) is placed on the data
	// nodes.
	ProxyNodesPerLocation int
	// Backup adds a barman instance per data location.
	Backup bool
}

// DefaultDataNodes returns the data nodes per location used when the
// layout does not say.
func DefaultDataNodes(a *arch.Architecture) int {
	if a.Replicated {
		return 2
	}
	return 1
}

// Generate plans the instances of a new cluster of architecture a over the
// locations already present in c.
//
// M1 places the primary first in the first location, followed by replicas.
// Replicated architectures place data nodes in every location and add a
// witness to locations with an even number of data nodes; a witness-only
// location gets a single witness.
func Generate(c *model.Cluster, a *arch.Architecture, l Layout) ([]InstanceSpec, error) {
	n := l.DataNodesPerLocation
	if n == 0 {
		n = DefaultDataNodes(a)
	}
	if n < 0 || l.ProxyNodesPerLocation < 0 {
		return nil, fmt.Errorf("%w: node counts must not be negative", model.ErrConfiguration)
	}
	if l.ProxyNodesPerLocation > 0 && a.ProxyRole == "" {
		return nil, fmt.Errorf("%w: %s has no proxy nodes", model.ErrConfiguration, a.Tag)
	}

	var specs []InstanceSpec
	add := func(loc string, roles ...string) {
		specs = append(specs, InstanceSpec{Location: loc, Roles: roles})
	}
	for li, loc := range c.Locations() {
		if loc.WitnessOnly() {
			if !a.Replicated {
				return nil, fmt.Errorf("%w: %s does not support witness-only locations", model.ErrConfiguration, a.Tag)
			}
			add(loc.Name(), model.RoleBDR, model.RoleWitness)
			continue
		}
		for k := range n {
			switch {
			case !a.Replicated && li == 0 && k == 0:
				add(loc.Name(), model.RolePrimary)
			case !a.Replicated:
				add(loc.Name(), model.RoleReplica)
			case a.ProxyRole != "" && l.ProxyNodesPerLocation == 0:
				add(loc.Name(), model.RoleBDR, a.ProxyRole)
			default:
				add(loc.Name(), model.RoleBDR)
			}
		}
		if a.Replicated && n%2 == 0 {
			add(loc.Name(), model.RoleBDR, model.RoleWitness)
		}
		for range l.ProxyNodesPerLocation {
			add(loc.Name(), a.ProxyRole)
		}
		if l.Backup {
			add(loc.Name(), model.RoleBarman)
		}
	}
	return specs, nil
}

// Unnamed returns how many specs need a generated name.
func Unnamed(specs []InstanceSpec) int {
	n := 0
	for _, s := range specs {
		if s.Name == "" {
			n++
		}
	}
	return n
}

// Materialize adds the planned instances to c. Unnamed specs take their
// names, and addresses, from hosts in order.
func Materialize(c *model.Cluster, specs []InstanceSpec, hosts []domain.Host) ([]*model.Instance, error) {
	if need := Unnamed(specs); need > len(hosts) {
		return nil, fmt.Errorf("%w: %d host names needed, %d available", model.ErrInternal, need, len(hosts))
	}
	var out []*model.Instance
	next := 0
	for _, s := range specs {
		name := s.Name
		settings := s.Settings
		if name == "" {
			h := hosts[next]
			next++
			name = h.Name
			settings = withAddresses(settings, h.Addresses)
		}
		inst, err := c.AddInstance(name, s.Location, model.InstanceOptions{
			NodeID:   s.NodeID,
			Roles:    s.Roles,
			Settings: settings,
			Vars:     s.Vars,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func withAddresses(settings map[string]any, addrs []string) map[string]any {
	if len(addrs) == 0 {
		return settings
	}
	out := maps.Clone(settings)
	if out == nil {
		out = map[string]any{}
	}
	out["ip_address"] = addrs[0]
	if len(addrs) > 1 {
		out["public_ip"] = addrs[1]
	}
	return out
}
