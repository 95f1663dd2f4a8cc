package model

import (
	"fmt"
	"reflect"
	"slices"
)

// Instances is an ordered, possibly filtered view over instances. It never
// owns the instances it references; every filter returns a new view.
type Instances struct {
	items []*Instance
}

// NewInstances returns a view over the given instances.
func NewInstances(items ...*Instance) Instances {
	return Instances{items: slices.Clone(items)}
}

// Len returns the number of members.
func (s Instances) Len() int { return len(s.items) }

// All returns the members as a slice copy.
func (s Instances) All() []*Instance { return slices.Clone(s.items) }

// Names returns the member names in order.
func (s Instances) Names() []string {
	out := make([]string, 0, len(s.items))
	for _, i := range s.items {
		out = append(out, i.name)
	}
	return out
}

// First returns the first member or nil.
func (s Instances) First() *Instance {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[0]
}

// Select returns the members for which fn returns true.
func (s Instances) Select(fn func(*Instance) bool) Instances {
	out := Instances{}
	for _, i := range s.items {
		if fn(i) {
			out.items = append(out.items, i)
		}
	}
	return out
}

// WithName selects the member with the given name.
func (s Instances) WithName(name string) Instances {
	return s.Select(func(i *Instance) bool { return i.name == name })
}

// WithRole selects members that have role r.
func (s Instances) WithRole(r string) Instances {
	return s.Select(func(i *Instance) bool { return i.HasRole(r) })
}

// WithRoles selects members that have all of roles.
func (s Instances) WithRoles(roles ...string) Instances {
	return s.Select(func(i *Instance) bool { return i.HasAllRoles(roles...) })
}

// WithoutRole selects members that lack role r.
func (s Instances) WithoutRole(r string) Instances {
	return s.Select(func(i *Instance) bool { return !i.HasRole(r) })
}

// WithoutRoles selects members that have none of roles.
func (s Instances) WithoutRoles(roles ...string) Instances {
	return s.Select(func(i *Instance) bool { return !i.HasAnyRole(roles...) })
}

// InLocation selects members in the named location.
func (s Instances) InLocation(name string) Instances {
	return s.Select(func(i *Instance) bool { return i.location != nil && i.location.name == name })
}

// WithHostvar selects members that define host variable key.
func (s Instances) WithHostvar(key string) Instances {
	return s.Select(func(i *Instance) bool {
		_, ok := i.Vars[key]
		return ok
	})
}

// WithHostvarValue selects members whose host variable key equals value.
func (s Instances) WithHostvarValue(key string, value any) Instances {
	return s.Select(func(i *Instance) bool {
		v, ok := i.Vars[key]
		return ok && reflect.DeepEqual(v, value)
	})
}

// WithBDRNodeKind selects members whose BDRNodeKind is kind.
func (s Instances) WithBDRNodeKind(kind string) Instances {
	return s.Select(func(i *Instance) bool { return i.BDRNodeKind() == kind })
}

// AddRole adds r to every member.
func (s Instances) AddRole(r string) Instances {
	for _, i := range s.items {
		i.AddRole(r)
	}
	return s
}

// SetHostvar sets a host variable on every member.
func (s Instances) SetHostvar(key string, value any) Instances {
	for _, i := range s.items {
		i.SetVar(key, value)
	}
	return s
}

// Only returns the single member, failing unless exactly one is present.
func (s Instances) Only() (*Instance, error) {
	if len(s.items) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one instance, found %d %v", ErrCardinality, len(s.items), s.Names())
	}
	return s.items[0], nil
}

// Maybe returns the single member or nil, failing if more than one is
// present.
func (s Instances) Maybe() (*Instance, error) {
	switch len(s.items) {
	case 0:
		return nil, nil
	case 1:
		return s.items[0], nil
	default:
		return nil, fmt.Errorf("%w: expected at most one instance, found %d %v", ErrCardinality, len(s.items), s.Names())
	}
}
