package model

import (
	"errors"
	"slices"
	"testing"
)

func populate(t *testing.T) *Cluster {
	t.Helper()
	c := newTestCluster(t)
	add := func(name, loc string, roles ...string) {
		t.Helper()
		if _, err := c.AddInstance(name, loc, InstanceOptions{Roles: roles}); err != nil {
			t.Fatal(err)
		}
	}
	add("data1", "first", RoleBDR)
	add("data2", "first", RoleBDR, RolePGDProxy)
	add("wit1", "first", RoleBDR, RoleWitness)
	add("ro1", "second", RoleBDR, RoleReadonly)
	add("so1", "second", RoleBDR, RoleSubscriberOnly, RoleReadonly)
	add("bar1", "second", RoleBarman)
	return c
}

func TestInstances_Filters(t *testing.T) {
	c := populate(t)
	all := c.Instances()

	tests := []struct {
		name string
		got  Instances
		want []string
	}{
		{"WithRole", all.WithRole(RoleBDR), []string{"data1", "data2", "wit1", "ro1", "so1"}},
		{"WithRoles", all.WithRoles(RoleBDR, RolePGDProxy), []string{"data2"}},
		{"WithoutRole", all.WithoutRole(RoleBDR), []string{"bar1"}},
		{"WithoutRoles", all.WithRole(RoleBDR).WithoutRoles(RoleWitness, RoleReadonly), []string{"data1", "data2"}},
		{"InLocation", all.InLocation("second"), []string{"ro1", "so1", "bar1"}},
		{"WithName", all.WithName("wit1"), []string{"wit1"}},
		{"kind data", all.WithBDRNodeKind(NodeKindData), []string{"data1", "data2"}},
		{"kind witness", all.WithBDRNodeKind(NodeKindWitness), []string{"wit1"}},
		{"kind standby", all.WithBDRNodeKind(NodeKindStandby), []string{"ro1"}},
		{"kind subscriber-only", all.WithBDRNodeKind(NodeKindSubscriberOnly), []string{"so1"}},
		{"kind none", all.WithBDRNodeKind(""), []string{"bar1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstances_FiltersDoNotAlias(t *testing.T) {
	c := populate(t)
	all := c.Instances()
	_ = all.WithRole(RoleBarman)
	if all.Len() != 6 {
		t.Fatalf("filtering changed the source view: %d", all.Len())
	}
	list := all.All()
	list[0] = nil
	if all.First() == nil {
		t.Fatal("All() must return a copy")
	}
}

func TestInstances_BulkHelpers(t *testing.T) {
	c := populate(t)
	data := c.Instances().WithBDRNodeKind(NodeKindData)
	data.AddRole(RolePEMAgent).SetHostvar("bdr_child_group", "first_subgroup")

	if got := c.Instances().WithRole(RolePEMAgent).Names(); !slices.Equal(got, []string{"data1", "data2"}) {
		t.Errorf("pem-agent members = %v", got)
	}
	if got := c.Instances().WithHostvar("bdr_child_group").Len(); got != 2 {
		t.Errorf("WithHostvar = %d", got)
	}
	if got := c.Instances().WithHostvarValue("bdr_child_group", "first_subgroup").Len(); got != 2 {
		t.Errorf("WithHostvarValue = %d", got)
	}
	if got := c.Instances().WithHostvarValue("bdr_child_group", "other").Len(); got != 0 {
		t.Errorf("WithHostvarValue(other) = %d", got)
	}
}

func TestInstances_Cardinality(t *testing.T) {
	c := populate(t)
	all := c.Instances()

	if i, err := all.WithRole(RoleBarman).Only(); err != nil || i.Name() != "bar1" {
		t.Errorf("Only() = %v, %v", i, err)
	}
	if _, err := all.WithRole(RoleBDR).Only(); !errors.Is(err, ErrCardinality) {
		t.Errorf("Only() on many = %v", err)
	}
	if _, err := all.WithRole(RolePEMServer).Only(); !errors.Is(err, ErrCardinality) {
		t.Errorf("Only() on none = %v", err)
	}
	if i, err := all.WithRole(RolePEMServer).Maybe(); err != nil || i != nil {
		t.Errorf("Maybe() on none = %v, %v", i, err)
	}
	if i, err := all.WithRole(RoleWitness).Maybe(); err != nil || i.Name() != "wit1" {
		t.Errorf("Maybe() on one = %v, %v", i, err)
	}
	if _, err := all.WithRole(RoleBDR).Maybe(); !errors.Is(err, ErrCardinality) {
		t.Errorf("Maybe() on many = %v", err)
	}
}

func TestInstance_IsPrimaryReplicated(t *testing.T) {
	c := populate(t)
	var got []string
	for _, i := range c.Instances().All() {
		if i.IsPrimaryReplicated() {
			got = append(got, i.Name())
		}
	}
	if !slices.Equal(got, []string{"data1", "data2"}) {
		t.Errorf("primary replicated = %v", got)
	}
}
