// Package topology builds the initial layout of a cluster: locations and
// their subnets, instances and roles, compatible software versions,
// replication groups, CAMO partners and auxiliary services.
package topology

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
)

// Input is everything Resolve needs besides the cluster itself.
type Input struct {
	PostgresVersion     string
	ReplicationVersion  string
	Locations           []string
	WitnessOnlyLocation string
	Subnets             []netip.Prefix
	Layout              Layout
	// Template, if set, is a rendered topology template used instead of
	// the built-in layout.
	Template     []byte
	RoutingMode  string
	Repositories []string

	EnableCAMO        bool
	EnablePEM         bool
	EnablePgBackupAPI bool

	Hostnames      domain.HostnamePort
	HostnamePrefix string
}

// Result summarizes a resolved cluster.
type Result struct {
	Versions     arch.VersionPair
	Instances    []*model.Instance
	Groups       *GroupPlan
	Pairs        []Pair
	CommitScopes []CommitScope
}

// Resolver builds new clusters from a catalog.
type Resolver struct {
	Catalog *arch.Catalog
}

// NewResolver returns a resolver over cat, or the default catalog if cat
// is nil.
func NewResolver(cat *arch.Catalog) *Resolver {
	if cat == nil {
		cat = arch.DefaultCatalog()
	}
	return &Resolver{Catalog: cat}
}

// Resolve populates the empty cluster c. The host name helper is called
// once for every instance that needs a generated name.
func (r *Resolver) Resolve(ctx context.Context, c *model.Cluster, in Input) (*Result, error) {
	log := logging.FromContext(ctx)
	a, err := r.Catalog.Lookup(c.Architecture())
	if err != nil {
		return nil, err
	}
	if c.Instances().Len() > 0 || len(c.Locations()) > 0 {
		return nil, fmt.Errorf("%w: cluster %s is not empty", model.ErrInternal, c.Name())
	}
	if in.EnableCAMO && !a.Replicated {
		return nil, fmt.Errorf("%w: CAMO requires a replicated architecture, not %s", model.ErrConfiguration, a.Tag)
	}

	res := &Result{}
	if res.Versions, err = ResolveVersions(a, in.PostgresVersion, in.ReplicationVersion); err != nil {
		return nil, err
	}
	SetVersions(c, res.Versions)
	log.Debug(ctx, "versions resolved", "postgres", res.Versions.Postgres, "replication", res.Versions.Replication)

	repos := in.Repositories
	if len(repos) == 0 {
		repos = a.DefaultRepositories
	}
	if unknown := UnknownRepositories(r.Catalog, repos); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown repositories %s (known: %s)", model.ErrConfiguration,
			strings.Join(unknown, ", "), strings.Join(r.Catalog.RepositoryNames(), ", "))
	}
	SetRepositories(c, repos)

	if err := BuildLocations(c, in.Locations, in.WitnessOnlyLocation, in.Subnets); err != nil {
		return nil, err
	}

	var specs []InstanceSpec
	if len(in.Template) > 0 {
		specs, err = ApplyTemplate(in.Template)
	} else {
		specs, err = Generate(c, a, in.Layout)
	}
	if err != nil {
		return nil, err
	}

	var atts []Attachment
	if in.EnablePgBackupAPI {
		atts = append(atts, PgBackupAPIAttachment())
	}
	if in.EnablePEM {
		atts = append(atts, PEMAttachment(""))
	}
	services := 0
	for _, att := range atts {
		if att.ServiceRole != "" && !specsHaveRole(specs, att.ServiceRole) {
			services++
		}
	}

	var hosts []domain.Host
	if need := Unnamed(specs) + services; need > 0 {
		if in.Hostnames == nil {
			return nil, fmt.Errorf("%w: %d instances need host names but no generator is configured", model.ErrConfiguration, need)
		}
		if hosts, err = in.Hostnames.Hostnames(ctx, need, in.HostnamePrefix); err != nil {
			return nil, err
		}
		if len(hosts) < need {
			return nil, fmt.Errorf("%w: host name generator returned %d names, %d requested", model.ErrExternal, len(hosts), need)
		}
	}
	if res.Instances, err = Materialize(c, specs, hosts); err != nil {
		return nil, err
	}

	rest := hosts[Unnamed(specs):]
	for k := range atts {
		if atts[k].NeedsService(c) {
			atts[k].ServiceName = rest[0].Name
			rest = rest[1:]
		}
	}
	created, err := Attach(c, atts)
	if err != nil {
		return nil, err
	}
	res.Instances = append(res.Instances, created...)
	AssociateBackups(c)

	if res.Groups, err = BuildGroups(ctx, c, a, GroupOptions{RoutingMode: in.RoutingMode}); err != nil {
		return nil, err
	}
	if in.EnableCAMO {
		res.Pairs = PairCAMO(ctx, c)
		if res.CommitScopes, err = CommitScopes(c, res.Pairs); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func specsHaveRole(specs []InstanceSpec, role string) bool {
	for _, s := range specs {
		if slices.Contains(s.Roles, role) {
			return true
		}
	}
	return false
}
