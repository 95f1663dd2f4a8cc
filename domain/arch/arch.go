// Package arch describes the supported cluster architectures as data: the
// valid Postgres/replication version pairs, the replication-group options and
// the roles each architecture uses. Architectures form a closed set; there is
// no per-architecture code, only the Architecture values in a Catalog.
package arch

import (
	"fmt"
	"slices"

	"github.com/kompox/pgcluster/domain/model"
)

// Tag names an architecture.
type Tag string

const (
	M1          Tag = "M1"
	BDRAlwaysON Tag = "BDR-Always-ON"
	PGDAlwaysON Tag = "PGD-Always-ON"
	PGDX        Tag = "PGD-X"
)

// Routing modes for replicated architectures.
const (
	// RoutingGlobal elects one write leader for the whole cluster.
	RoutingGlobal = "global"
	// RoutingLocal elects one write leader per location.
	RoutingLocal = "local"
)

// Architecture is the data attached to one architecture tag.
type Architecture struct {
	Tag Tag
	// Versions lists the valid (postgres, replication) pairs and defaults.
	Versions VersionMatrix
	// Replicated is true for multi-master architectures that build
	// replication groups.
	Replicated bool
	// RoutingKey is the subgroup option that turns write routing on, or ""
	// if the architecture has no routing options.
	RoutingKey string
	// ProxyRole is the role of connection proxies, or "" if routing is built
	// into the data nodes.
	ProxyRole string
	// DefaultRoutingMode applies when the user does not choose one.
	DefaultRoutingMode string
	// DefaultRepositories is the package repository selection for a new
	// cluster of this architecture.
	DefaultRepositories []string
	// ObsoleteVars are cluster variables that no longer apply once a cluster
	// has been converted to this architecture.
	ObsoleteVars []string
	// Next is the architecture a cluster of this one can be upgraded to.
	Next Tag
}

// SupportsRouting reports whether replication subgroups carry routing
// options.
func (a *Architecture) SupportsRouting() bool { return a.RoutingKey != "" }

// Repository describes an installable package repository.
type Repository struct {
	Name       string
	Enterprise bool
}

// Catalog is the immutable table of architectures and repositories passed to
// the resolver and the transmogrifiers.
type Catalog struct {
	Architectures []Architecture
	Repositories  []Repository
}

// Lookup returns the architecture with the given tag.
func (c *Catalog) Lookup(tag string) (*Architecture, error) {
	for i := range c.Architectures {
		if string(c.Architectures[i].Tag) == tag {
			return &c.Architectures[i], nil
		}
	}
	return nil, fmt.Errorf("%w: unknown architecture %q (known: %v)", model.ErrConfiguration, tag, c.Tags())
}

// Tags returns the known architecture tags in catalog order.
func (c *Catalog) Tags() []string {
	out := make([]string, 0, len(c.Architectures))
	for _, a := range c.Architectures {
		out = append(out, string(a.Tag))
	}
	return out
}

// Repository returns the named repository.
func (c *Catalog) Repository(name string) (Repository, bool) {
	i := slices.IndexFunc(c.Repositories, func(r Repository) bool { return r.Name == name })
	if i < 0 {
		return Repository{}, false
	}
	return c.Repositories[i], true
}

// RepositoryNames returns every known repository name.
func (c *Catalog) RepositoryNames() []string {
	out := make([]string, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		out = append(out, r.Name)
	}
	return out
}

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Architectures: []Architecture{
			{
				Tag: M1,
				Versions: VersionMatrix{
					Valid:   pairs("", "12", "13", "14", "15", "16", "17"),
					Default: VersionPair{Postgres: "16"},
				},
				DefaultRepositories: []string{"postgresql"},
			},
			{
				Tag: BDRAlwaysON,
				Versions: VersionMatrix{
					Valid: append(pairs("3", "11", "12", "13"), pairs("4", "12", "13", "14", "15")...),
					Default: VersionPair{Postgres: "14", Replication: "4"},
					ReplicationByPostgres: map[string]string{
						"11": "3", "12": "4", "13": "4", "14": "4", "15": "4",
					},
					PostgresByReplication: map[string]string{"3": "13", "4": "14"},
				},
				Replicated:          true,
				ProxyRole:           model.RoleHarpProxy,
				DefaultRoutingMode:  RoutingLocal,
				DefaultRepositories: []string{"enterprise", "postgres_distributed_4"},
				Next:                PGDAlwaysON,
			},
			{
				Tag: PGDAlwaysON,
				Versions: VersionMatrix{
					Valid:                 pairs("5", "12", "13", "14", "15", "16", "17"),
					Default:               VersionPair{Postgres: "16", Replication: "5"},
					PostgresByReplication: map[string]string{"5": "16"},
				},
				Replicated:          true,
				RoutingKey:          "enable_proxy_routing",
				ProxyRole:           model.RolePGDProxy,
				DefaultRoutingMode:  RoutingLocal,
				DefaultRepositories: []string{"enterprise", "postgres_distributed"},
				ObsoleteVars:        []string{"harp_consensus_protocol", "harp_version", "bdr_version_pin"},
				Next:                PGDX,
			},
			{
				Tag: PGDX,
				Versions: VersionMatrix{
					Valid:                 pairs("6", "14", "15", "16", "17"),
					Default:               VersionPair{Postgres: "17", Replication: "6"},
					PostgresByReplication: map[string]string{"6": "17"},
				},
				Replicated:          true,
				RoutingKey:          "enable_routing",
				DefaultRoutingMode:  RoutingLocal,
				DefaultRepositories: []string{"enterprise", "postgres_distributed_6"},
				ObsoleteVars:        []string{"pgd_proxy_options", "bdr_version_pin"},
			},
		},
		Repositories: []Repository{
			{Name: "postgresql"},
			{Name: "epel"},
			{Name: "enterprise", Enterprise: true},
			{Name: "standard", Enterprise: true},
			{Name: "postgres_distributed_4", Enterprise: true},
			{Name: "postgres_distributed", Enterprise: true},
			{Name: "postgres_distributed_6", Enterprise: true},
		},
	}
}

// pairs returns (postgres, replication) pairs for one replication version.
func pairs(replication string, postgres ...string) []VersionPair {
	out := make([]VersionPair, 0, len(postgres))
	for _, p := range postgres {
		out = append(out, VersionPair{Postgres: p, Replication: replication})
	}
	return out
}
