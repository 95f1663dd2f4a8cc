package topology

import (
	"fmt"
	"slices"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
)

// Cluster variables written by the resolver.
const (
	VarPostgresVersion    = "postgres_version"
	VarReplicationVersion = "bdr_version"
	VarRepositories       = "edb_repositories"
	VarNodeGroups         = "bdr_node_groups"
	VarNodeGroup          = "bdr_node_group"
	VarChildGroup         = "bdr_child_group"
	VarCAMOPartner        = "bdr_node_camo_partner"
	VarCommitScopes       = "bdr_commit_scopes"
	VarClusterID          = "cluster_id"
)

// ResolveVersions completes and validates a (postgres, replication) pair
// for architecture a. Either value may be empty.
func ResolveVersions(a *arch.Architecture, postgres, replication string) (arch.VersionPair, error) {
	p, err := a.Versions.Resolve(postgres, replication)
	if err != nil {
		return arch.VersionPair{}, fmt.Errorf("%s: %w", a.Tag, err)
	}
	return p, nil
}

// SetVersions records p in the cluster variables. The replication version
// is omitted for architectures without one.
func SetVersions(c *model.Cluster, p arch.VersionPair) {
	c.Group().Set(VarPostgresVersion, p.Postgres)
	if p.Replication == "" {
		c.Group().Delete(VarReplicationVersion)
		return
	}
	c.Group().Set(VarReplicationVersion, p.Replication)
}

// CurrentVersions reads the pair recorded by SetVersions.
func CurrentVersions(c *model.Cluster) arch.VersionPair {
	var p arch.VersionPair
	if v, ok := c.Group().Get(VarPostgresVersion); ok {
		p.Postgres = fmt.Sprint(v)
	}
	if v, ok := c.Group().Get(VarReplicationVersion); ok {
		p.Replication = fmt.Sprint(v)
	}
	return p
}

// UnknownRepositories returns the names in repos that cat does not know,
// in input order, each once.
func UnknownRepositories(cat *arch.Catalog, repos []string) []string {
	var out []string
	for _, r := range repos {
		if _, ok := cat.Repository(r); !ok && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// Repositories returns the repository selection recorded in the cluster.
func Repositories(c *model.Cluster) []string {
	v, _ := c.Group().Get(VarRepositories)
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		if x != "" {
			return []string{x}
		}
	}
	return nil
}

// SetRepositories records the repository selection.
func SetRepositories(c *model.Cluster, repos []string) {
	if len(repos) == 0 {
		c.Group().Delete(VarRepositories)
		return
	}
	c.Group().Set(VarRepositories, slices.Clone(repos))
}
