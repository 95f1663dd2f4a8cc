package model

import "fmt"

// Group is a named container of variables. Groups form a rooted forest: a
// group has at most one parent and can never be its own ancestor.
type Group struct {
	Name     string
	Vars     map[string]any
	parent   *Group
	children []*Group
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{Name: name, Vars: map[string]any{}}
}

// Parent returns the group's parent, or nil for a root.
func (g *Group) Parent() *Group { return g.parent }

// Children returns a copy of the ordered child list.
func (g *Group) Children() []*Group {
	out := make([]*Group, len(g.children))
	copy(out, g.children)
	return out
}

// AddChild appends child to g. It fails if child already has a parent or if
// adding it would make a group its own ancestor.
func (g *Group) AddChild(child *Group) error {
	if child == nil {
		return fmt.Errorf("%w: nil child group", ErrReferential)
	}
	if child.parent != nil {
		return fmt.Errorf("%w: group %q already belongs to %q", ErrReferential, child.Name, child.parent.Name)
	}
	for p := g; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("%w: group %q cannot be its own ancestor", ErrReferential, child.Name)
		}
	}
	child.parent = g
	g.children = append(g.children, child)
	return nil
}

// Get returns the value of a variable defined directly on g.
func (g *Group) Get(key string) (any, bool) {
	v, ok := g.Vars[key]
	return v, ok
}

// Set defines a variable on g.
func (g *Group) Set(key string, value any) {
	if g.Vars == nil {
		g.Vars = map[string]any{}
	}
	g.Vars[key] = value
}

// Delete removes a variable from g.
func (g *Group) Delete(key string) { delete(g.Vars, key) }

// Walk visits g and its descendants depth first, parents before children.
func (g *Group) Walk(fn func(*Group)) {
	fn(g)
	for _, c := range g.children {
		c.Walk(fn)
	}
}
