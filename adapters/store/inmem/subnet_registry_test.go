package inmem

import (
	"context"
	"errors"
	"testing"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
)

func TestSubnetRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewSubnetRegistry()
	if err := r.Record(ctx, "a", []domain.SubnetAllocation{{Subnet: "10.0.0.0/28"}, {Subnet: "10.0.0.16/28"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(ctx, "b", []domain.SubnetAllocation{{Subnet: "10.0.0.16/28"}}); !errors.Is(err, model.ErrCapacity) {
		t.Fatalf("Record of a taken subnet: %v", err)
	}
	if err := r.Record(ctx, "a", []domain.SubnetAllocation{{Subnet: "10.0.0.32/28"}}); err != nil {
		t.Fatal(err)
	}
	all, _ := r.List(ctx)
	if len(all) != 1 || all[0].Subnet != "10.0.0.32/28" || all[0].ID == "" {
		t.Errorf("List() = %+v", all)
	}
	_ = r.Release(ctx, "a")
	if all, _ := r.List(ctx); len(all) != 0 {
		t.Errorf("after Release: %+v", all)
	}
}
