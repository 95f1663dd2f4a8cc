package inmem

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
)

// SubnetRegistry is a thread-safe in-memory implementation.
type SubnetRegistry struct {
	mu    sync.RWMutex
	items []domain.SubnetAllocation
}

func NewSubnetRegistry() *SubnetRegistry { return &SubnetRegistry{} }

func (r *SubnetRegistry) List(_ context.Context) ([]domain.SubnetAllocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items), nil
}

func (r *SubnetRegistry) Record(_ context.Context, cluster string, allocs []domain.SubnetAllocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := slices.DeleteFunc(slices.Clone(r.items), func(a domain.SubnetAllocation) bool { return a.Cluster == cluster })
	now := time.Now().UTC()
	for _, a := range allocs {
		for _, k := range kept {
			if k.Subnet == a.Subnet {
				return fmt.Errorf("%w: subnet %s is already allocated to %s", model.ErrCapacity, a.Subnet, k.Cluster)
			}
		}
		a.Cluster = cluster
		if a.ID == "" {
			a.ID = "subnet-" + uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		kept = append(kept, a)
	}
	r.items = kept
	return nil
}

func (r *SubnetRegistry) Release(_ context.Context, cluster string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = slices.DeleteFunc(r.items, func(a domain.SubnetAllocation) bool { return a.Cluster == cluster })
	return nil
}

var _ domain.SubnetRegistry = (*SubnetRegistry)(nil)
