package model

import (
	"errors"
	"testing"
)

func newTestCluster(t *testing.T) *Cluster {
	t.Helper()
	c := NewCluster("Speedy", "PGD-Always-ON", "aws")
	for _, l := range []string{"first", "second"} {
		if _, err := c.AddLocation(l, nil, nil); err != nil {
			t.Fatalf("AddLocation(%q): %v", l, err)
		}
	}
	return c
}

func TestCluster_AddInstance(t *testing.T) {
	c := newTestCluster(t)

	a, err := c.AddInstance("kaboom", "first", InstanceOptions{Roles: []string{RoleBDR}})
	if err != nil {
		t.Fatalf("AddInstance: %v", err)
	}
	if a.NodeID() != 1 {
		t.Errorf("NodeID = %d, want 1", a.NodeID())
	}
	b, err := c.AddInstance("kapok", "second", InstanceOptions{NodeID: 7})
	if err != nil {
		t.Fatalf("AddInstance: %v", err)
	}
	if b.NodeID() != 7 {
		t.Errorf("NodeID = %d, want 7", b.NodeID())
	}
	d, err := c.AddInstance("karma", "second", InstanceOptions{})
	if err != nil {
		t.Fatalf("AddInstance: %v", err)
	}
	if d.NodeID() != 8 {
		t.Errorf("NodeID = %d, want max+1 = 8", d.NodeID())
	}
	if d.Location().Name() != "second" || d.Cluster() != c {
		t.Errorf("unexpected ownership: %s %p", d.Location().Name(), d.Cluster())
	}
}

func TestCluster_AddInstanceFailuresDoNotMutate(t *testing.T) {
	c := newTestCluster(t)
	if _, err := c.AddInstance("kaboom", "first", InstanceOptions{NodeID: 3}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		instance string
		location string
		opts     InstanceOptions
		wantErr  error
	}{
		{name: "duplicate name", instance: "kaboom", location: "second", wantErr: ErrDuplicateInstance},
		{name: "unknown location", instance: "kapok", location: "third", wantErr: ErrLocationNotFound},
		{name: "duplicate node id", instance: "kapok", location: "first", opts: InstanceOptions{NodeID: 3}, wantErr: ErrReferential},
		{name: "invalid hostname", instance: "Not_A_Host", location: "first", wantErr: ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.AddInstance(tt.instance, tt.location, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddInstance() error = %v, want %v", err, tt.wantErr)
			}
			if n := c.Instances().Len(); n != 1 {
				t.Fatalf("cluster has %d instances after failed add, want 1", n)
			}
		})
	}
	if !errors.Is(ErrDuplicateInstance, ErrReferential) || !errors.Is(ErrLocationNotFound, ErrReferential) {
		t.Error("duplicate and missing-location errors must be referential errors")
	}
}

func TestCluster_UniqueNodeIDs(t *testing.T) {
	c := newTestCluster(t)
	names := []string{"a1", "a2", "a3", "a4", "a5"}
	for i, n := range names {
		loc := "first"
		if i%2 == 1 {
			loc = "second"
		}
		if _, err := c.AddInstance(n, loc, InstanceOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	seen := map[int]bool{}
	for _, i := range c.Instances().All() {
		if seen[i.NodeID()] {
			t.Fatalf("node id %d assigned twice", i.NodeID())
		}
		seen[i.NodeID()] = true
	}
}

func TestCluster_Locations(t *testing.T) {
	c := newTestCluster(t)
	if _, err := c.AddLocation("first", nil, nil); !errors.Is(err, ErrReferential) {
		t.Fatalf("duplicate location error = %v", err)
	}
	l := c.LocationByName("second")
	if l == nil {
		t.Fatal("location not found")
	}
	if l.GroupName() != "location_second" || l.Group().Name != "location_second" {
		t.Errorf("group name = %q", l.Group().Name)
	}
	if l.Group().Parent() != c.Group() {
		t.Error("location group is not a child of the main group")
	}
	if c.Group().Name != "speedy" || c.TopGroupName() != "speedy" {
		t.Errorf("main group = %q, top group = %q", c.Group().Name, c.TopGroupName())
	}

	locs := c.Locations()
	locs[0] = nil
	if c.Locations()[0] == nil {
		t.Error("Locations() must return a copy")
	}

	l.SetWitnessOnly(true)
	if !l.WitnessOnly() {
		t.Error("WitnessOnly() = false after SetWitnessOnly(true)")
	}
	l.SetWitnessOnly(false)
	if _, ok := l.Settings["witness_only"]; ok {
		t.Error("witness_only should be removed")
	}
}

func TestGroup_AddChildRejectsCycles(t *testing.T) {
	root := NewGroup("root")
	mid := NewGroup("mid")
	leaf := NewGroup("leaf")
	if err := root.AddChild(mid); err != nil {
		t.Fatal(err)
	}
	if err := mid.AddChild(leaf); err != nil {
		t.Fatal(err)
	}
	if err := leaf.AddChild(leaf); !errors.Is(err, ErrReferential) {
		t.Errorf("self child error = %v", err)
	}
	detached := NewGroup("other")
	if err := leaf.AddChild(root); !errors.Is(err, ErrReferential) {
		t.Errorf("ancestor child error = %v", err)
	}
	if err := detached.AddChild(mid); !errors.Is(err, ErrReferential) {
		t.Errorf("second parent error = %v", err)
	}

	var visited []string
	root.Walk(func(g *Group) { visited = append(visited, g.Name) })
	if len(visited) != 3 || visited[0] != "root" || visited[2] != "leaf" {
		t.Errorf("Walk visited %v", visited)
	}
}

func TestInstance_VarChain(t *testing.T) {
	c := newTestCluster(t)
	i, err := c.AddInstance("kaboom", "first", InstanceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	loc := c.LocationByName("first")

	if got := i.Var("postgres_version", "none"); got != "none" {
		t.Errorf("default = %v", got)
	}
	c.Group().Set("postgres_version", "13")
	if got := i.Var("postgres_version", nil); got != "13" {
		t.Errorf("cluster level = %v", got)
	}
	loc.Group().Set("postgres_version", "14")
	if got := i.Var("postgres_version", nil); got != "14" {
		t.Errorf("location level = %v", got)
	}
	c.InstanceDefaults().Vars["postgres_version"] = "15"
	if got := i.Var("postgres_version", nil); got != "15" {
		t.Errorf("instance_defaults level = %v", got)
	}
	i.SetVar("postgres_version", "16")
	if got := i.Var("postgres_version", nil); got != "16" {
		t.Errorf("host level = %v", got)
	}

	i.DeleteVar("postgres_version")
	delete(c.InstanceDefaults().Vars, "postgres_version")
	loc.Group().Delete("postgres_version")
	if got := i.Var("postgres_version", nil); got != "13" {
		t.Errorf("after removing overrides = %v, want cluster value 13", got)
	}
}

func TestInstance_Roles(t *testing.T) {
	c := newTestCluster(t)
	i, _ := c.AddInstance("kaboom", "first", InstanceOptions{Roles: []string{RoleBDR, RoleHarpProxy, RoleBDR}})
	if got := i.Roles(); len(got) != 2 {
		t.Fatalf("roles = %v", got)
	}
	if !i.ReplaceRole(RoleHarpProxy, RolePGDProxy) {
		t.Fatal("ReplaceRole returned false")
	}
	if got := i.Roles(); got[1] != RolePGDProxy {
		t.Errorf("roles after replace = %v", got)
	}
	if i.ReplaceRole("absent", "x") {
		t.Error("ReplaceRole of absent role returned true")
	}
	i.RemoveRole(RolePGDProxy)
	if i.HasRole(RolePGDProxy) {
		t.Error("RemoveRole did not remove")
	}
}

func TestCluster_RemoveInstance(t *testing.T) {
	c := newTestCluster(t)
	_, _ = c.AddInstance("kaboom", "first", InstanceOptions{})
	if err := c.RemoveInstance("kaboom"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveInstance("kaboom"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("second remove error = %v", err)
	}
}
