// Package model holds the cluster data model: a Cluster owns its Locations
// and Instances, and each Cluster and Location owns one variable Group.
package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kompox/pgcluster/internal/naming"
)

// Cluster is one deployable cluster and the root of the entity graph.
type Cluster struct {
	name         string
	architecture string
	platform     string
	settings     map[string]any
	group        *Group
	defaults     InstanceDefaults
	locations    []*Location
	instances    []*Instance
}

// InstanceDefaults holds the instance_defaults section: settings inherited
// by every instance plus variables that sit between host variables and
// location variables in the resolution chain.
type InstanceDefaults struct {
	Settings map[string]any
	Vars     map[string]any
}

// NewCluster returns an empty cluster. The main group is named after the
// sanitized cluster name.
func NewCluster(name, architecture, platform string) *Cluster {
	return &Cluster{
		name:         name,
		architecture: architecture,
		platform:     platform,
		settings:     map[string]any{},
		group:        NewGroup(naming.Sanitize(name)),
		defaults:     InstanceDefaults{Settings: map[string]any{}, Vars: map[string]any{}},
	}
}

// Name returns the cluster name.
func (c *Cluster) Name() string { return c.name }

// Architecture returns the architecture tag.
func (c *Cluster) Architecture() string { return c.architecture }

// SetArchitecture changes the architecture tag.
func (c *Cluster) SetArchitecture(a string) { c.architecture = a }

// Platform returns the platform tag.
func (c *Cluster) Platform() string { return c.platform }

// SetPlatform changes the platform tag.
func (c *Cluster) SetPlatform(p string) { c.platform = p }

// Settings returns the top-level settings map. The map is live: callers may
// modify it.
func (c *Cluster) Settings() map[string]any { return c.settings }

// Group returns the main variable group (cluster_vars).
func (c *Cluster) Group() *Group { return c.group }

// Vars is shorthand for Group().Vars.
func (c *Cluster) Vars() map[string]any { return c.group.Vars }

// InstanceDefaults returns the instance_defaults section.
func (c *Cluster) InstanceDefaults() *InstanceDefaults { return &c.defaults }

// TopGroupName returns the name the top-level replication group must have.
func (c *Cluster) TopGroupName() string { return naming.TopGroupName(c.name) }

// Locations returns a copy of the ordered location list.
func (c *Cluster) Locations() []*Location { return slices.Clone(c.locations) }

// LocationByName returns the named location or nil.
func (c *Cluster) LocationByName(name string) *Location {
	for _, l := range c.locations {
		if l.name == name {
			return l
		}
	}
	return nil
}

// AddLocation creates a location with its own variable group, attached as a
// child of the main group.
func (c *Cluster) AddLocation(name string, settings, vars map[string]any) (*Location, error) {
	if err := naming.ValidateLocationName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.LocationByName(name) != nil {
		return nil, fmt.Errorf("%w: location %q already exists", ErrReferential, name)
	}
	g := NewGroup(naming.LocationGroupName(name))
	if vars != nil {
		g.Vars = maps.Clone(vars)
	}
	if err := c.group.AddChild(g); err != nil {
		return nil, err
	}
	l := &Location{name: name, Settings: cloneOrEmpty(settings), group: g}
	c.locations = append(c.locations, l)
	return l, nil
}

// Instances returns a view over every instance, in insertion order.
func (c *Cluster) Instances() Instances { return NewInstances(c.instances...) }

// InstanceByName returns the named instance or nil.
func (c *Cluster) InstanceByName(name string) *Instance {
	for _, i := range c.instances {
		if i.name == name {
			return i
		}
	}
	return nil
}

// NextNodeID returns max(existing node ids)+1, or 1 for an empty cluster.
func (c *Cluster) NextNodeID() int {
	highest := 0
	for _, i := range c.instances {
		highest = max(highest, i.nodeID)
	}
	return highest + 1
}

// AddInstance creates an instance in the named location. It fails without
// modifying the cluster if the name is taken, the location is unknown, the
// name is not a valid hostname, or an explicit node id is already in use.
func (c *Cluster) AddInstance(name, locationName string, opts InstanceOptions) (*Instance, error) {
	if c.InstanceByName(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateInstance, name)
	}
	loc := c.LocationByName(locationName)
	if loc == nil {
		return nil, fmt.Errorf("%w: %q (instance %q)", ErrLocationNotFound, locationName, name)
	}
	if err := naming.ValidateHostname(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	id := opts.NodeID
	if id == 0 {
		id = c.NextNodeID()
	} else {
		if id < 0 {
			return nil, fmt.Errorf("%w: instance %q has negative node id %d", ErrConfiguration, name, id)
		}
		for _, other := range c.instances {
			if other.nodeID == id {
				return nil, fmt.Errorf("%w: node id %d of %q is already used by %q", ErrReferential, id, name, other.name)
			}
		}
	}
	inst := &Instance{
		nodeID:   id,
		name:     name,
		location: loc,
		cluster:  c,
		Settings: cloneOrEmpty(opts.Settings),
		Vars:     cloneOrEmpty(opts.Vars),
	}
	for _, r := range opts.Roles {
		inst.AddRole(r)
	}
	c.instances = append(c.instances, inst)
	return inst, nil
}

// RemoveInstance deletes the named instance.
func (c *Cluster) RemoveInstance(name string) error {
	idx := slices.IndexFunc(c.instances, func(i *Instance) bool { return i.name == name })
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrInstanceNotFound, name)
	}
	c.instances = slices.Delete(c.instances, idx, idx+1)
	return nil
}

func cloneOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
