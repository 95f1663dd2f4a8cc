package rdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
)

// SubnetRegistry records subnet allocations in a SQL database shared by
// every cluster directory that points at it.
type SubnetRegistry struct{ db *gorm.DB }

func NewSubnetRegistry(db *gorm.DB) *SubnetRegistry { return &SubnetRegistry{db: db} }

func subnetToRecord(a domain.SubnetAllocation) *SubnetRecord {
	return &SubnetRecord{ID: a.ID, Cluster: a.Cluster, Location: a.Location, Subnet: a.Subnet, CreatedAt: a.CreatedAt}
}

func subnetToDomain(r *SubnetRecord) domain.SubnetAllocation {
	return domain.SubnetAllocation{ID: r.ID, Cluster: r.Cluster, Location: r.Location, Subnet: r.Subnet, CreatedAt: r.CreatedAt}
}

func (r *SubnetRegistry) List(ctx context.Context) ([]domain.SubnetAllocation, error) {
	var recs []SubnetRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("subnet ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: subnet registry: %v", model.ErrExternal, err)
	}
	out := make([]domain.SubnetAllocation, 0, len(recs))
	for i := range recs {
		out = append(out, subnetToDomain(&recs[i]))
	}
	return out, nil
}

// Record replaces the allocations of cluster in one transaction. A subnet
// already held by another cluster fails the whole call.
func (r *SubnetRegistry) Record(ctx context.Context, cluster string, allocs []domain.SubnetAllocation) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&SubnetRecord{}, "cluster = ?", cluster).Error; err != nil {
			return err
		}
		for _, a := range allocs {
			rec := subnetToRecord(a)
			rec.Cluster = cluster
			if rec.ID == "" {
				rec.ID = "subnet-" + uuid.NewString()
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = now
			}
			var holder SubnetRecord
			if err := tx.First(&holder, "subnet = ?", rec.Subnet).Error; err == nil {
				return fmt.Errorf("%w: subnet %s is already allocated to %s", model.ErrCapacity, rec.Subnet, holder.Cluster)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrCapacity) {
		return fmt.Errorf("%w: subnet registry: %v", model.ErrExternal, err)
	}
	return err
}

func (r *SubnetRegistry) Release(ctx context.Context, cluster string) error {
	if err := r.db.WithContext(ctx).Delete(&SubnetRecord{}, "cluster = ?", cluster).Error; err != nil {
		return fmt.Errorf("%w: subnet registry: %v", model.ErrExternal, err)
	}
	return nil
}

var _ domain.SubnetRegistry = (*SubnetRegistry)(nil)
