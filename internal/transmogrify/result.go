package transmogrify

import (
	"fmt"
	"slices"
	"strings"
)

// CheckResult collects the warnings and errors of one check pass.
type CheckResult struct {
	Warnings []string
	Errors   []string
}

// Warning records a non-fatal problem.
func (r *CheckResult) Warning(format string, args ...any) {
	r.Warnings = appendUnique(r.Warnings, fmt.Sprintf(format, args...))
}

// Error records a problem that prevents Apply.
func (r *CheckResult) Error(format string, args ...any) {
	r.Errors = appendUnique(r.Errors, fmt.Sprintf(format, args...))
}

// Absorb merges other into r. Messages already present are not repeated, so
// a requirement shared by several transmogrifiers reports each problem once.
func (r *CheckResult) Absorb(other *CheckResult) {
	if other == nil {
		return
	}
	for _, w := range other.Warnings {
		r.Warnings = appendUnique(r.Warnings, w)
	}
	for _, e := range other.Errors {
		r.Errors = appendUnique(r.Errors, e)
	}
}

// HasErrors reports whether any error was recorded.
func (r *CheckResult) HasErrors() bool { return len(r.Errors) > 0 }

// String renders the result for the terminal.
func (r *CheckResult) String() string {
	var b strings.Builder
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "WARNING: %s\n", w)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "ERROR: %s\n", e)
	}
	return b.String()
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// ChangeDescription is a hierarchical, human readable plan.
type ChangeDescription struct {
	Title string
	Items []Item
}

// Item is either a line of text or a nested description.
type Item struct {
	Text string
	Sub  *ChangeDescription
}

// NewDescription returns a description with the given title and lines.
func NewDescription(title string, lines ...string) *ChangeDescription {
	d := &ChangeDescription{Title: title}
	for _, l := range lines {
		d.Add(l)
	}
	return d
}

// Add appends a formatted line.
func (d *ChangeDescription) Add(format string, args ...any) {
	d.Items = append(d.Items, Item{Text: fmt.Sprintf(format, args...)})
}

// AddDescription appends a nested description. Empty descriptions are
// skipped.
func (d *ChangeDescription) AddDescription(sub *ChangeDescription) {
	if sub == nil || sub.Empty() {
		return
	}
	d.Items = append(d.Items, Item{Sub: sub})
}

// prepend inserts sub as the first item.
func (d *ChangeDescription) prepend(sub *ChangeDescription) {
	if sub == nil || sub.Empty() {
		return
	}
	d.Items = append([]Item{{Sub: sub}}, d.Items...)
}

// Empty reports whether the description has neither title nor items.
func (d *ChangeDescription) Empty() bool { return d.Title == "" && len(d.Items) == 0 }

// String renders the description as an indented list.
func (d *ChangeDescription) String() string {
	var b strings.Builder
	d.render(&b, 0)
	return b.String()
}

func (d *ChangeDescription) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	itemDepth := depth
	if d.Title != "" {
		fmt.Fprintf(b, "%s%s\n", indent, d.Title)
		itemDepth++
	}
	for _, it := range d.Items {
		if it.Sub != nil {
			it.Sub.render(b, itemDepth)
			continue
		}
		fmt.Fprintf(b, "%s- %s\n", strings.Repeat("  ", itemDepth), it.Text)
	}
}
