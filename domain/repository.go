package domain

import (
	"context"
	"time"

	"github.com/kompox/pgcluster/domain/model"
)

// ClusterStore loads and persists cluster configuration documents. A path
// is either a cluster directory or the document itself.
type ClusterStore interface {
	// Exists reports whether a document is present at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Load returns the cluster and the raw document it was decoded from.
	Load(ctx context.Context, path string) (*model.Cluster, []byte, error)
	// Save writes c to path. When original is non-nil the key order and
	// comments of that document are kept. Save returns the written bytes.
	Save(ctx context.Context, path string, c *model.Cluster, original []byte) ([]byte, error)
	// Siblings lists the documents of the other clusters next to path.
	Siblings(ctx context.Context, path string) ([]string, error)
}

// SubnetAllocation records one subnet handed to a cluster location.
type SubnetAllocation struct {
	ID        string
	Cluster   string
	Location  string
	Subnet    string
	CreatedAt time.Time
}

// SubnetRegistry tracks subnets in use across clusters, as a second
// exclusion source next to the sibling documents.
type SubnetRegistry interface {
	// List returns every recorded allocation.
	List(ctx context.Context) ([]SubnetAllocation, error)
	// Record stores allocations for a cluster, replacing any earlier
	// allocations of that cluster. IDs and timestamps are assigned by the
	// registry when empty.
	Record(ctx context.Context, cluster string, allocs []SubnetAllocation) error
	// Release forgets every allocation of a cluster.
	Release(ctx context.Context, cluster string) error
}

// Host is one generated host name with up to two addresses.
type Host struct {
	Name      string
	Addresses []string
}

// HostnamePort produces host names for new instances.
type HostnamePort interface {
	Hostnames(ctx context.Context, count int, prefix string) ([]Host, error)
}
