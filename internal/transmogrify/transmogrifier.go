// Package transmogrify applies independently written, mutually dependent
// changes ("transmogrifiers") to an existing cluster.
//
// Each transmogrifier can describe, check and apply itself and may require
// other transmogrifiers. Check and Describe walk the requirement tree;
// Apply flattens it into a queue and applies each entry once it reports
// itself ready, so changes whose ordering depends on what earlier changes
// did to the cluster do not need a static dependency.
package transmogrify

import (
	"context"
	"slices"

	"github.com/kompox/pgcluster/domain/model"
)

// Transmogrifier is one self-describing change to a cluster.
type Transmogrifier interface {
	// Name identifies the transmogrifier class.
	Name() string
	// Options lists the command line options the transmogrifier reads.
	Options() []Option
	// IsApplicable reports whether, with the bound arguments, the
	// transmogrifier would change c at all.
	IsApplicable(c *model.Cluster) bool
	// IsReady reports whether preconditions beyond the declared
	// requirements currently hold.
	IsReady(c *model.Cluster) bool
	// Check validates the change without modifying c.
	Check(c *model.Cluster) *CheckResult
	// Apply modifies c. Applying twice must be harmless.
	Apply(ctx context.Context, c *model.Cluster) error
	// Description explains the planned change.
	Description(c *model.Cluster) *ChangeDescription
	// Required returns the direct requirements in declaration order.
	Required() []Transmogrifier
	// Require declares t as a direct requirement.
	Require(t Transmogrifier)
	// Bind attaches parsed arguments to the transmogrifier and its
	// requirements.
	Bind(args *Args)
}

// Base implements the bookkeeping part of Transmogrifier: requirements,
// argument binding with per-instance defaults, and an always-true IsReady.
// Concrete transmogrifiers embed it.
type Base struct {
	required []Transmogrifier
	args     *Args
	defaults map[string]any
}

// Required returns a copy of the direct requirements.
func (b *Base) Required() []Transmogrifier { return slices.Clone(b.required) }

// Require declares t as a direct requirement.
func (b *Base) Require(t Transmogrifier) { b.required = append(b.required, t) }

// Bind attaches args to b and every requirement.
func (b *Base) Bind(args *Args) {
	b.args = args
	for _, r := range b.required {
		r.Bind(args)
	}
}

// Args returns the bound arguments, or nil.
func (b *Base) Args() *Args { return b.args }

// IsReady is true by default.
func (b *Base) IsReady(*model.Cluster) bool { return true }

// SetDefault gives option name a default that applies to this instance
// only. It is used when a transmogrifier requires another one and needs it
// to behave differently from a standalone invocation.
func (b *Base) SetDefault(name string, value any) {
	if b.defaults == nil {
		b.defaults = map[string]any{}
	}
	b.defaults[name] = value
}

// lookup resolves an option value: an explicit command line value first,
// then the per-instance default, then the option's own default.
func (b *Base) lookup(name string) (any, bool) {
	if b.args != nil && b.args.Changed(name) {
		return b.args.Value(name)
	}
	if v, ok := b.defaults[name]; ok {
		return v, true
	}
	if b.args != nil {
		return b.args.Value(name)
	}
	return nil, false
}

// Changed reports whether option name was given explicitly or has an
// instance default.
func (b *Base) Changed(name string) bool {
	if b.args != nil && b.args.Changed(name) {
		return true
	}
	_, ok := b.defaults[name]
	return ok
}

// String returns the value of a string option.
func (b *Base) String(name string) string {
	v, _ := b.lookup(name)
	s, _ := v.(string)
	return s
}

// StringList returns the value of a string list option.
func (b *Base) StringList(name string) []string {
	v, _ := b.lookup(name)
	l, _ := v.([]string)
	return slices.Clone(l)
}

// Bool returns the value of a boolean option.
func (b *Base) Bool(name string) bool {
	v, _ := b.lookup(name)
	on, _ := v.(bool)
	return on
}

// Int returns the value of an integer option.
func (b *Base) Int(name string) int {
	v, _ := b.lookup(name)
	n, _ := v.(int)
	return n
}

// AllRequired returns the transitive requirements of t, depth first, each
// requirement's own requirements before it. There is no cycle detection: a
// cycle is a programming error.
func AllRequired(t Transmogrifier) []Transmogrifier {
	var out []Transmogrifier
	for _, r := range t.Required() {
		out = append(out, AllRequired(r)...)
		out = append(out, r)
	}
	return out
}
