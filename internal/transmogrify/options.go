package transmogrify

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/spf13/pflag"
)

// Kind is the value type of an Option.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStringList:
		return "stringList"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Option declares one command line option read by a transmogrifier.
type Option struct {
	Name     string
	Aliases  []string
	Kind     Kind
	Default  any
	Required bool
	Choices  []string
	Usage    string
}

var optionName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Validate checks that the declaration is self-consistent.
func (o Option) Validate() error {
	for _, n := range append([]string{o.Name}, o.Aliases...) {
		if !optionName.MatchString(n) {
			return fmt.Errorf("%w: option %q: invalid name %q", model.ErrInternal, o.Name, n)
		}
	}
	if o.Required && o.Default != nil {
		return fmt.Errorf("%w: option %q: a required option cannot have a default", model.ErrInternal, o.Name)
	}
	if len(o.Choices) > 0 && o.Kind != KindString && o.Kind != KindStringList {
		return fmt.Errorf("%w: option %q: choices need a string kind", model.ErrInternal, o.Name)
	}
	if o.Default == nil {
		return nil
	}
	ok := false
	switch o.Kind {
	case KindString:
		_, ok = o.Default.(string)
	case KindBool:
		_, ok = o.Default.(bool)
	case KindInt:
		_, ok = o.Default.(int)
	case KindStringList:
		_, ok = o.Default.([]string)
	}
	if !ok {
		return fmt.Errorf("%w: option %q: default %v is not a %s", model.ErrInternal, o.Name, o.Default, o.Kind)
	}
	if err := o.checkChoices(o.Default); err != nil {
		return fmt.Errorf("%w: option %q: default: %v", model.ErrInternal, o.Name, err)
	}
	return nil
}

func (o Option) checkChoices(v any) error {
	if len(o.Choices) == 0 {
		return nil
	}
	var values []string
	switch x := v.(type) {
	case string:
		values = []string{x}
	case []string:
		values = x
	}
	for _, s := range values {
		if !slices.Contains(o.Choices, s) {
			return fmt.Errorf("invalid value %q for --%s (choose from %s)", s, o.Name, strings.Join(o.Choices, ", "))
		}
	}
	return nil
}

// register adds the option and its aliases to fs. Aliases share the
// option's value and are hidden from usage output.
func (o Option) register(fs *pflag.FlagSet) {
	switch o.Kind {
	case KindString:
		def, _ := o.Default.(string)
		fs.String(o.Name, def, o.Usage)
	case KindBool:
		def, _ := o.Default.(bool)
		fs.Bool(o.Name, def, o.Usage)
	case KindInt:
		def, _ := o.Default.(int)
		fs.Int(o.Name, def, o.Usage)
	case KindStringList:
		def, _ := o.Default.([]string)
		fs.StringSlice(o.Name, def, o.Usage)
	}
	main := fs.Lookup(o.Name)
	for _, a := range o.Aliases {
		fs.Var(main.Value, a, o.Usage)
		if o.Kind == KindBool {
			fs.Lookup(a).NoOptDefVal = "true"
		}
		_ = fs.MarkHidden(a)
	}
}

// Args is the single parsed argument context shared by every selected
// transmogrifier.
type Args struct {
	flags      *pflag.FlagSet
	options    map[string]Option
	positional []string
}

// Changed reports whether option name (or one of its aliases) was given on
// the command line.
func (a *Args) Changed(name string) bool {
	o, ok := a.options[name]
	if !ok {
		return false
	}
	for _, n := range append([]string{o.Name}, o.Aliases...) {
		if a.flags.Changed(n) {
			return true
		}
	}
	return false
}

// Value returns the typed value of option name: explicit or its default.
func (a *Args) Value(name string) (any, bool) {
	o, ok := a.options[name]
	if !ok {
		return nil, false
	}
	var (
		v   any
		err error
	)
	switch o.Kind {
	case KindString:
		v, err = a.flags.GetString(name)
	case KindBool:
		v, err = a.flags.GetBool(name)
	case KindInt:
		v, err = a.flags.GetInt(name)
	case KindStringList:
		v, err = a.flags.GetStringSlice(name)
	}
	if err != nil {
		return nil, false
	}
	return v, true
}

// String returns the value of a string option.
func (a *Args) String(name string) string {
	v, _ := a.Value(name)
	s, _ := v.(string)
	return s
}

// Bool returns the value of a boolean option.
func (a *Args) Bool(name string) bool {
	v, _ := a.Value(name)
	on, _ := v.(bool)
	return on
}

// Positional returns the non-option arguments.
func (a *Args) Positional() []string { return slices.Clone(a.positional) }
