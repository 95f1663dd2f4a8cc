package transmogrify

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kompox/pgcluster/domain/model"
)

// setVar sets a cluster variable. It is applicable unless the variable
// already has the value, and optionally waits for another variable.
type setVar struct {
	Base
	name    string
	key     string
	value   string
	waitFor string
	never   bool
	errs    []string
	applied *[]string
}

func (s *setVar) Name() string      { return s.name }
func (s *setVar) Options() []Option { return []Option{{Name: s.name, Kind: KindBool}} }
func (s *setVar) IsApplicable(c *model.Cluster) bool {
	v, _ := c.Group().Get(s.key)
	return v != s.value
}
func (s *setVar) IsReady(c *model.Cluster) bool {
	if s.never {
		return false
	}
	if s.waitFor == "" {
		return true
	}
	_, ok := c.Group().Get(s.waitFor)
	return ok
}
func (s *setVar) Check(c *model.Cluster) *CheckResult {
	r := &CheckResult{}
	for _, e := range s.errs {
		r.Error("%s", e)
	}
	return r
}
func (s *setVar) Apply(_ context.Context, c *model.Cluster) error {
	c.Group().Set(s.key, s.value)
	if s.applied != nil {
		*s.applied = append(*s.applied, s.name)
	}
	return nil
}
func (s *setVar) Description(*model.Cluster) *ChangeDescription {
	return NewDescription(s.name, "set "+s.key+" to "+s.value)
}

func newCluster() *model.Cluster { return model.NewCluster("speedy", "PGD-Always-ON", "aws") }

func TestAllRequired(t *testing.T) {
	a := &setVar{name: "a"}
	b := &setVar{name: "b"}
	c := &setVar{name: "c"}
	d := &setVar{name: "d"}
	b.Require(a)
	c.Require(b)
	c.Require(d)

	var names []string
	for _, r := range AllRequired(c) {
		names = append(names, r.Name())
	}
	if !slices.Equal(names, []string{"a", "b", "d"}) {
		t.Errorf("AllRequired = %v", names)
	}
}

func TestCheck_SkipsNotApplicable(t *testing.T) {
	cl := newCluster()
	cl.Group().Set("done", "yes")

	dep := &setVar{name: "dep", key: "x", value: "1", errs: []string{"dep broken"}}
	skipped := &setVar{name: "skipped", key: "done", value: "yes", errs: []string{"never reported"}}
	skipped.Require(dep)
	top := &setVar{name: "top", key: "y", value: "1", errs: []string{"top broken"}}
	top.Require(dep)

	r := Check(cl, []Transmogrifier{skipped, top})
	if !slices.Equal(r.Errors, []string{"dep broken", "top broken"}) {
		t.Errorf("errors = %v", r.Errors)
	}
	if len(cl.Vars()) != 1 {
		t.Errorf("Check modified the cluster: %v", cl.Vars())
	}
}

func TestDescribe(t *testing.T) {
	cl := newCluster()
	cl.Group().Set("done", "yes")
	dep := &setVar{name: "dep", key: "x", value: "1"}
	top := &setVar{name: "top", key: "y", value: "2"}
	top.Require(dep)
	hiddenDep := &setVar{name: "hidden-dep", key: "z", value: "3"}
	skipped := &setVar{name: "skipped", key: "done", value: "yes"}
	skipped.Require(hiddenDep)

	d := Describe(cl, []Transmogrifier{top, skipped})
	want := "top\n  dep\n    - set x to 1\n  - set y to 2\n"
	if got := d.String(); got != want {
		t.Errorf("Describe() =\n%s\nwant\n%s", got, want)
	}
}

func TestApply_Order(t *testing.T) {
	cl := newCluster()
	var applied []string
	dep := &setVar{name: "dep", key: "x", value: "1", applied: &applied}
	top := &setVar{name: "top", key: "y", value: "1", applied: &applied}
	top.Require(dep)
	// waiter is listed first but can only run once late has set "z".
	waiter := &setVar{name: "waiter", key: "w", value: "1", waitFor: "z", applied: &applied}
	late := &setVar{name: "late", key: "z", value: "1", applied: &applied}

	if _, err := Apply(context.Background(), cl, []Transmogrifier{waiter, top, late}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !slices.Equal(applied, []string{"dep", "top", "late", "waiter"}) {
		t.Errorf("applied order = %v", applied)
	}

	// Everything is applied now, so a second run has nothing to do.
	applied = nil
	if _, err := Apply(context.Background(), cl, []Transmogrifier{waiter, top, late}); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second run applied %v", applied)
	}
}

func TestApply_RefusedOnCheckErrors(t *testing.T) {
	cl := newCluster()
	bad := &setVar{name: "bad", key: "x", value: "1", errs: []string{"nope"}}
	r, err := Apply(context.Background(), cl, []Transmogrifier{bad})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("Apply error = %v", err)
	}
	if !r.HasErrors() || !strings.Contains(err.Error(), "nope") {
		t.Errorf("result = %+v, err = %v", r, err)
	}
	if _, ok := cl.Group().Get("x"); ok {
		t.Error("cluster modified despite check errors")
	}
}

func TestApply_Deadlock(t *testing.T) {
	cl := newCluster()
	a := &setVar{name: "a", key: "x", value: "1", never: true}
	b := &setVar{name: "b", key: "y", value: "1", never: true}
	_, err := Apply(context.Background(), cl, []Transmogrifier{a, b})
	if !errors.Is(err, model.ErrSchedulerDeadlock) || !errors.Is(err, model.ErrInternal) {
		t.Fatalf("Apply error = %v, want scheduler deadlock", err)
	}
	if !strings.Contains(err.Error(), "a, b") {
		t.Errorf("deadlock error should name the waiting entries: %v", err)
	}
}

func TestApply_WaitingOnUnsatisfiableIsDeadlock(t *testing.T) {
	cl := newCluster()
	var applied []string
	ok := &setVar{name: "ok", key: "x", value: "1", applied: &applied}
	stuck := &setVar{name: "stuck", key: "y", value: "1", waitFor: "never-set"}
	_, err := Apply(context.Background(), cl, []Transmogrifier{stuck, ok})
	if !errors.Is(err, model.ErrSchedulerDeadlock) {
		t.Fatalf("Apply error = %v", err)
	}
	if !slices.Equal(applied, []string{"ok"}) {
		t.Errorf("applied = %v", applied)
	}
}

func TestCheckResult_Absorb(t *testing.T) {
	a := &CheckResult{}
	a.Warning("w1")
	a.Error("e1")
	b := &CheckResult{}
	b.Error("e1")
	b.Error("e2")
	a.Absorb(b)
	a.Absorb(nil)
	if !slices.Equal(a.Errors, []string{"e1", "e2"}) || !slices.Equal(a.Warnings, []string{"w1"}) {
		t.Errorf("absorbed = %+v", a)
	}
	if got := a.String(); got != "WARNING: w1\nERROR: e1\nERROR: e2\n" {
		t.Errorf("String() = %q", got)
	}
}
