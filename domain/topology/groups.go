package topology

import (
	"context"
	"fmt"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
	"github.com/kompox/pgcluster/internal/naming"
)

// GroupSpec is one replication group.
type GroupSpec struct {
	Name            string
	ParentGroupName string
	Location        string
	Options         map[string]any
}

// GroupPlan is the replication-group hierarchy of a cluster: one top
// group and one subgroup per location holding replicated instances.
type GroupPlan struct {
	Top       GroupSpec
	Subgroups []GroupSpec
}

// Subgroup returns the subgroup of the named location, or nil.
func (p *GroupPlan) Subgroup(location string) *GroupSpec {
	for i := range p.Subgroups {
		if p.Subgroups[i].Location == location {
			return &p.Subgroups[i]
		}
	}
	return nil
}

// Vars renders the plan as the bdr_node_groups list.
func (p *GroupPlan) Vars() []any {
	out := []any{groupVar(p.Top)}
	for _, g := range p.Subgroups {
		out = append(out, groupVar(g))
	}
	return out
}

func groupVar(g GroupSpec) map[string]any {
	m := map[string]any{"name": g.Name}
	if g.ParentGroupName != "" {
		m["parent_group_name"] = g.ParentGroupName
	}
	if len(g.Options) > 0 {
		m["options"] = g.Options
	}
	return m
}

// GroupOptions controls BuildGroups.
type GroupOptions struct {
	// RoutingMode is arch.RoutingGlobal or arch.RoutingLocal. Empty
	// selects the architecture default.
	RoutingMode string
}

// BuildGroups creates the replication-group hierarchy for c, records it in
// the bdr_node_groups and bdr_node_group cluster variables and sets
// bdr_child_group on every replicated instance.
//
// With local routing each data location's subgroup elects its own write
// leader (enable_raft and the routing key on). With global routing the top
// group does and the subgroups do not. Witness-only locations never route.
// Architectures without routing options get plain groups.
func BuildGroups(ctx context.Context, c *model.Cluster, a *arch.Architecture, opts GroupOptions) (*GroupPlan, error) {
	log := logging.FromContext(ctx)
	if !a.Replicated {
		return &GroupPlan{}, nil
	}
	top := c.TopGroupName()
	if want := naming.Sanitize(c.Name()); top != want {
		return nil, fmt.Errorf("%w: top-level group %q must be named %q", model.ErrInternal, top, want)
	}
	if v, ok := c.Group().Get(VarNodeGroup); ok && v != top {
		return nil, fmt.Errorf("%w: %s is %v but the cluster name requires %q", model.ErrConfiguration, VarNodeGroup, v, top)
	}

	mode := opts.RoutingMode
	if mode == "" {
		mode = a.DefaultRoutingMode
	}
	if mode != arch.RoutingGlobal && mode != arch.RoutingLocal {
		return nil, fmt.Errorf("%w: invalid routing mode %q", model.ErrConfiguration, mode)
	}

	plan := &GroupPlan{Top: GroupSpec{Name: top}}
	if a.SupportsRouting() && mode == arch.RoutingGlobal {
		plan.Top.Options = map[string]any{"enable_raft": true, a.RoutingKey: true}
	}
	replicated := c.Instances().WithRole(model.RoleBDR)
	for _, loc := range c.Locations() {
		members := replicated.InLocation(loc.Name())
		if members.Len() == 0 {
			continue
		}
		g := GroupSpec{
			Name:            naming.SubgroupName(loc.Name()),
			ParentGroupName: top,
			Location:        loc.Name(),
		}
		if a.SupportsRouting() {
			on := mode == arch.RoutingLocal && !loc.WitnessOnly()
			g.Options = map[string]any{"enable_raft": on, a.RoutingKey: on}
		}
		members.SetHostvar(VarChildGroup, g.Name)
		log.Debug(ctx, "replication subgroup", "name", g.Name, "members", members.Names())
		plan.Subgroups = append(plan.Subgroups, g)
	}

	c.Group().Set(VarNodeGroup, top)
	c.Group().Set(VarNodeGroups, plan.Vars())
	return plan, nil
}

// LoadGroups reads the hierarchy back from the bdr_node_groups variable.
func LoadGroups(c *model.Cluster) (*GroupPlan, error) {
	v, ok := c.Group().Get(VarNodeGroups)
	if !ok {
		return nil, fmt.Errorf("%w: cluster has no %s", model.ErrConfiguration, VarNodeGroups)
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%w: %s must be a non-empty list", model.ErrConfiguration, VarNodeGroups)
	}
	plan := &GroupPlan{}
	for i, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a mapping", model.ErrConfiguration, VarNodeGroups, i)
		}
		g := GroupSpec{}
		g.Name, _ = m["name"].(string)
		g.ParentGroupName, _ = m["parent_group_name"].(string)
		g.Options, _ = m["options"].(map[string]any)
		if g.ParentGroupName == "" {
			plan.Top = g
			continue
		}
		for _, loc := range c.Locations() {
			if naming.SubgroupName(loc.Name()) == g.Name {
				g.Location = loc.Name()
			}
		}
		plan.Subgroups = append(plan.Subgroups, g)
	}
	if plan.Top.Name == "" {
		return nil, fmt.Errorf("%w: %s has no top-level group", model.ErrConfiguration, VarNodeGroups)
	}
	return plan, nil
}

// SaveGroups writes plan back to the bdr_node_groups variable.
func SaveGroups(c *model.Cluster, plan *GroupPlan) {
	c.Group().Set(VarNodeGroups, plan.Vars())
}
