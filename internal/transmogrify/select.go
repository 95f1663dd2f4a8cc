package transmogrify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/spf13/pflag"
)

// Class is a registered kind of transmogrifier. New returns a fresh
// instance together with its requirements.
type Class struct {
	Name string
	New  func() Transmogrifier
}

// Selection is the outcome of Select.
type Selection struct {
	Transmogrifiers []Transmogrifier
	Args            *Args
	FlagSet         *pflag.FlagSet
}

// Select picks the transmogrifiers a raw argument list asks for and binds
// one parsed argument context to all of them.
//
// In the first phase each class is instantiated and considered relevant if
// any of its own options appears in raw; missing required options are
// tolerated. A relevant class that is already a requirement of another
// relevant class is dropped, so the requirement instance (which may carry
// its own defaults) is used instead. In the second phase a single strict
// parser recognising base plus the options of the selected transmogrifiers
// and their requirements parses raw once.
func Select(name string, classes []Class, raw []string, base []Option) (*Selection, error) {
	var relevant []Transmogrifier
	for _, cl := range classes {
		t := cl.New()
		for _, o := range t.Options() {
			if mentions(raw, o) {
				relevant = append(relevant, t)
				break
			}
		}
	}

	covered := map[string]bool{}
	for _, t := range relevant {
		for _, r := range AllRequired(t) {
			covered[r.Name()] = true
		}
	}
	selected := slices.DeleteFunc(slices.Clone(relevant), func(t Transmogrifier) bool { return covered[t.Name()] })

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	args := &Args{flags: fs, options: map[string]Option{}}
	add := func(o Option) error {
		if err := o.Validate(); err != nil {
			return err
		}
		if prev, ok := args.options[o.Name]; ok {
			if prev.Kind != o.Kind {
				return fmt.Errorf("%w: option --%s declared as both %s and %s", model.ErrInternal, o.Name, prev.Kind, o.Kind)
			}
			return nil
		}
		args.options[o.Name] = o
		o.register(fs)
		return nil
	}
	for _, o := range base {
		if err := add(o); err != nil {
			return nil, err
		}
	}
	everyone := map[Transmogrifier]struct{}{}
	var ordered []Transmogrifier
	for _, t := range selected {
		for _, w := range append(AllRequired(t), t) {
			if _, seen := everyone[w]; seen {
				continue
			}
			everyone[w] = struct{}{}
			ordered = append(ordered, w)
			for _, o := range w.Options() {
				if err := add(o); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := fs.Parse(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	args.positional = fs.Args()

	for _, o := range args.options {
		if !args.Changed(o.Name) {
			continue
		}
		v, _ := args.Value(o.Name)
		if err := o.checkChoices(v); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
		}
	}
	for _, w := range ordered {
		for _, o := range w.Options() {
			if !o.Required {
				continue
			}
			if b, ok := w.(interface{ Changed(string) bool }); ok {
				w.Bind(args)
				if b.Changed(o.Name) {
					continue
				}
			} else if args.Changed(o.Name) {
				continue
			}
			return nil, fmt.Errorf("%w: %s requires --%s", model.ErrConfiguration, w.Name(), o.Name)
		}
	}

	for _, t := range selected {
		t.Bind(args)
	}
	return &Selection{Transmogrifiers: selected, Args: args, FlagSet: fs}, nil
}

// mentions reports whether raw contains --name or --name=value for the
// option or one of its aliases. Arguments after "--" are not options.
func mentions(raw []string, o Option) bool {
	names := append([]string{o.Name}, o.Aliases...)
	for _, a := range raw {
		if a == "--" {
			return false
		}
		if !strings.HasPrefix(a, "--") {
			continue
		}
		flag, _, _ := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		if slices.Contains(names, flag) {
			return true
		}
	}
	return false
}
