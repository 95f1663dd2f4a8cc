package model

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Instance is one server in a cluster. It belongs to exactly one Location,
// fixed when the instance is created, and its node id never changes.
type Instance struct {
	nodeID   int
	name     string
	location *Location
	cluster  *Cluster
	roles    []string
	// Settings holds the instance keys other than name, node, location,
	// role and vars (for example backup, subnet or platform).
	Settings map[string]any
	// Vars holds the host variables.
	Vars map[string]any
}

// InstanceOptions carries the optional attributes of a new instance.
type InstanceOptions struct {
	NodeID   int
	Roles    []string
	Settings map[string]any
	Vars     map[string]any
}

// NodeID returns the sequential node id.
func (i *Instance) NodeID() int { return i.nodeID }

// Name returns the instance (host) name.
func (i *Instance) Name() string { return i.name }

// Location returns the owning location.
func (i *Instance) Location() *Location { return i.location }

// Cluster returns the owning cluster.
func (i *Instance) Cluster() *Cluster { return i.cluster }

// Roles returns a copy of the ordered role list.
func (i *Instance) Roles() []string { return slices.Clone(i.roles) }

// HasRole reports whether the instance has role r.
func (i *Instance) HasRole(r string) bool { return slices.Contains(i.roles, r) }

// HasAnyRole reports whether the instance has at least one of roles.
func (i *Instance) HasAnyRole(roles ...string) bool {
	return sets.New(i.roles...).HasAny(roles...)
}

// HasAllRoles reports whether the instance has every one of roles.
func (i *Instance) HasAllRoles(roles ...string) bool {
	return sets.New(i.roles...).HasAll(roles...)
}

// AddRole appends r unless the instance already has it.
func (i *Instance) AddRole(r string) {
	if !i.HasRole(r) {
		i.roles = append(i.roles, r)
	}
}

// RemoveRole drops r from the role list.
func (i *Instance) RemoveRole(r string) {
	i.roles = slices.DeleteFunc(i.roles, func(s string) bool { return s == r })
}

// ReplaceRole substitutes newRole for oldRole in place, keeping the position
// of oldRole. It returns false if the instance did not have oldRole.
func (i *Instance) ReplaceRole(oldRole, newRole string) bool {
	idx := slices.Index(i.roles, oldRole)
	if idx < 0 {
		return false
	}
	if i.HasRole(newRole) {
		i.RemoveRole(oldRole)
		return true
	}
	i.roles[idx] = newRole
	return true
}

// SetVar sets a host variable.
func (i *Instance) SetVar(key string, value any) {
	if i.Vars == nil {
		i.Vars = map[string]any{}
	}
	i.Vars[key] = value
}

// DeleteVar removes a host variable, exposing any value defined further down
// the resolution chain.
func (i *Instance) DeleteVar(key string) { delete(i.Vars, key) }

// LookupVar resolves key through the variable chain: host variables, then
// instance_defaults variables, then the location group, then the cluster's
// main group.
func (i *Instance) LookupVar(key string) (any, bool) {
	if v, ok := i.Vars[key]; ok {
		return v, true
	}
	if i.cluster != nil {
		if v, ok := i.cluster.defaults.Vars[key]; ok {
			return v, true
		}
	}
	if i.location != nil && i.location.group != nil {
		if v, ok := i.location.group.Vars[key]; ok {
			return v, true
		}
	}
	if i.cluster != nil && i.cluster.group != nil {
		if v, ok := i.cluster.group.Vars[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Var is LookupVar with a default for keys defined nowhere in the chain.
func (i *Instance) Var(key string, def any) any {
	if v, ok := i.LookupVar(key); ok {
		return v
	}
	return def
}

// IsPostgres reports whether the instance runs Postgres.
func (i *Instance) IsPostgres() bool { return i.HasAnyRole(postgresRoles...) }

// IsPrimaryReplicated reports whether the instance is a writable replicated
// (bdr) node: it has the bdr role and none of readonly, witness,
// subscriber-only or replica.
func (i *Instance) IsPrimaryReplicated() bool {
	return i.HasRole(RoleBDR) && !i.HasAnyRole(nonPrimaryRoles...)
}

// BDRNodeKind classifies the instance by its roles. The first matching rule
// wins: witness, subscriber-only, standby (readonly), data. Instances without
// the bdr role have no kind.
func (i *Instance) BDRNodeKind() string {
	switch {
	case !i.HasRole(RoleBDR):
		return ""
	case i.HasRole(RoleWitness):
		return NodeKindWitness
	case i.HasRole(RoleSubscriberOnly):
		return NodeKindSubscriberOnly
	case i.HasRole(RoleReadonly):
		return NodeKindStandby
	default:
		return NodeKindData
	}
}
