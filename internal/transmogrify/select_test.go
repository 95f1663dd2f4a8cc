package transmogrify

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kompox/pgcluster/domain/model"
)

// repos is a stand-alone transmogrifier that other classes also require.
type repos struct{ Base }

func (r *repos) Name() string { return "repos" }
func (r *repos) Options() []Option {
	return []Option{{Name: "repositories", Aliases: []string{"repos"}, Kind: KindStringList, Choices: []string{"a", "b", "c"}}}
}
func (r *repos) IsApplicable(*model.Cluster) bool { return r.Changed("repositories") }
func (r *repos) Check(*model.Cluster) *CheckResult { return &CheckResult{} }
func (r *repos) Apply(context.Context, *model.Cluster) error { return nil }
func (r *repos) Description(*model.Cluster) *ChangeDescription { return NewDescription("repos") }

// upgrade requires repos with its own default.
type upgrade struct{ Base }

func newUpgrade() Transmogrifier {
	u := &upgrade{}
	dep := &repos{}
	dep.SetDefault("repositories", []string{"b"})
	u.Require(dep)
	return u
}

func (u *upgrade) Name() string { return "upgrade" }
func (u *upgrade) Options() []Option {
	return []Option{
		{Name: "architecture", Kind: KindString, Required: true},
		{Name: "retries", Kind: KindInt, Default: 3},
	}
}
func (u *upgrade) IsApplicable(*model.Cluster) bool { return true }
func (u *upgrade) Check(*model.Cluster) *CheckResult { return &CheckResult{} }
func (u *upgrade) Apply(context.Context, *model.Cluster) error { return nil }
func (u *upgrade) Description(*model.Cluster) *ChangeDescription { return NewDescription("upgrade") }

func testClasses() []Class {
	return []Class{
		{Name: "repos", New: func() Transmogrifier { return &repos{} }},
		{Name: "upgrade", New: newUpgrade},
	}
}

var baseOptions = []Option{
	{Name: "describe", Kind: KindBool},
	{Name: "output", Kind: KindString},
}

func names(ts []Transmogrifier) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Name())
	}
	return out
}

func TestSelect_Standalone(t *testing.T) {
	sel, err := Select("reconfigure", testClasses(), []string{"cluster", "--repos", "a,c", "--describe"}, baseOptions)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := names(sel.Transmogrifiers); !slices.Equal(got, []string{"repos"}) {
		t.Fatalf("selected = %v", got)
	}
	r := sel.Transmogrifiers[0].(*repos)
	if got := r.StringList("repositories"); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("repositories = %v", got)
	}
	if !sel.Args.Bool("describe") {
		t.Error("base option not parsed")
	}
	if got := sel.Args.Positional(); !slices.Equal(got, []string{"cluster"}) {
		t.Errorf("positional = %v", got)
	}
}

func TestSelect_DependencyReplacesStandalone(t *testing.T) {
	sel, err := Select("reconfigure", testClasses(), []string{"--architecture", "PGD-X", "--repositories=a"}, baseOptions)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := names(sel.Transmogrifiers); !slices.Equal(got, []string{"upgrade"}) {
		t.Fatalf("selected = %v", got)
	}
	u := sel.Transmogrifiers[0].(*upgrade)
	dep := u.Required()[0].(*repos)
	if got := dep.StringList("repositories"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("explicit value should win over dependency default: %v", got)
	}
	if u.Int("retries") != 3 {
		t.Errorf("option default = %d", u.Int("retries"))
	}
}

func TestSelect_DependencyDefault(t *testing.T) {
	sel, err := Select("reconfigure", testClasses(), []string{"--architecture", "PGD-X"}, baseOptions)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	dep := sel.Transmogrifiers[0].Required()[0].(*repos)
	if got := dep.StringList("repositories"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("dependency default = %v", got)
	}
	if dep.Args() != sel.Args {
		t.Error("requirement not bound to the shared argument context")
	}
}

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
	}{
		{"unknown option", []string{"--repos", "a", "--bogus"}},
		{"invalid choice", []string{"--repositories", "a,z"}},
		{"required missing", []string{"--retries", "4"}},
		{"bad int", []string{"--architecture", "x", "--retries", "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select("reconfigure", testClasses(), tt.raw, baseOptions)
			if !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("Select() error = %v, want configuration error", err)
			}
		})
	}
}

func TestSelect_NothingRelevant(t *testing.T) {
	sel, err := Select("reconfigure", testClasses(), []string{"dir", "--describe"}, baseOptions)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Transmogrifiers) != 0 {
		t.Errorf("selected = %v", names(sel.Transmogrifiers))
	}
}

func TestOption_Validate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		ok   bool
	}{
		{"plain", Option{Name: "edb-repositories", Kind: KindStringList}, true},
		{"bad name", Option{Name: "Edb_Repos", Kind: KindString}, false},
		{"bad alias", Option{Name: "x", Aliases: []string{"-y"}, Kind: KindString}, false},
		{"required with default", Option{Name: "x", Kind: KindString, Required: true, Default: "a"}, false},
		{"default kind mismatch", Option{Name: "x", Kind: KindInt, Default: "3"}, false},
		{"default outside choices", Option{Name: "x", Kind: KindString, Default: "c", Choices: []string{"a", "b"}}, false},
		{"choices on bool", Option{Name: "x", Kind: KindBool, Choices: []string{"a"}}, false},
		{"default in choices", Option{Name: "x", Kind: KindString, Default: "a", Choices: []string{"a", "b"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opt.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if !tt.ok && !errors.Is(err, model.ErrInternal) {
				t.Fatalf("Validate() = %v, want internal error", err)
			}
		})
	}
}
