package cluster

import (
	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/arch"
)

// Repos holds repositories needed for cluster use cases.
type Repos struct {
	Clusters domain.ClusterStore
	// Subnets is optional. When set it is consulted for exclusions and
	// updated after a cluster is configured.
	Subnets domain.SubnetRegistry
}

// UseCase wires repositories and ports needed for cluster use cases.
type UseCase struct {
	Repos     *Repos
	Hostnames domain.HostnamePort
	// Catalog defaults to arch.DefaultCatalog.
	Catalog *arch.Catalog
}

func (u *UseCase) catalog() *arch.Catalog {
	if u.Catalog == nil {
		return arch.DefaultCatalog()
	}
	return u.Catalog
}
