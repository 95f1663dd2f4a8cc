package cluster

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/kompox/pgcluster/config/clustercfg"
	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/domain/topology"
	"github.com/kompox/pgcluster/internal/logging"
	"github.com/kompox/pgcluster/internal/naming"
	"github.com/kompox/pgcluster/internal/subnet"
)

// ConfigureInput describes a new cluster.
type ConfigureInput struct {
	// Dir is the cluster directory. Its base name is the cluster name.
	Dir string `json:"dir"`
	// Architecture is the architecture tag.
	Architecture string `json:"architecture"`
	// Platform is recorded as-is.
	Platform string `json:"platform"`
	// PostgresVersion and ReplicationVersion may be empty; missing values
	// are completed from the architecture's version matrix.
	PostgresVersion    string `json:"postgres_version"`
	ReplicationVersion string `json:"replication_version"`
	// Locations lists data locations in order.
	Locations []string `json:"locations"`
	// WitnessOnlyLocation optionally names a location holding one witness.
	WitnessOnlyLocation string          `json:"witness_only_location"`
	Layout              topology.Layout `json:"layout"`
	// Template is a rendered topology template replacing the built-in
	// layout.
	Template []byte `json:"-"`
	// Network and SubnetPrefix default to subnet.DefaultNetwork and
	// subnet.DefaultPrefix.
	Network      string `json:"network"`
	SubnetPrefix int    `json:"subnet_prefix"`
	// NoShuffle hands out subnets in address order.
	NoShuffle bool `json:"no_shuffle"`
	// Rand drives the subnet shuffle. Nil uses a randomly seeded source.
	Rand *rand.Rand `json:"-"`
	// ExcludeSubnetsFrom lists further cluster directories or config.yml
	// files whose subnets must not be reused.
	ExcludeSubnetsFrom []string `json:"exclude_subnets_from"`
	HostnamePrefix     string   `json:"hostname_prefix"`
	RoutingMode        string   `json:"routing_mode"`
	Repositories       []string `json:"repositories"`
	EnableCAMO         bool     `json:"enable_camo"`
	EnablePEM          bool     `json:"enable_pem"`
	EnablePgBackupAPI  bool     `json:"enable_pg_backup_api"`
	// Force overwrites an existing configuration.
	Force bool `json:"force"`
}

// ConfigureOutput reports the configured cluster.
type ConfigureOutput struct {
	Cluster *model.Cluster   `json:"-"`
	Result  *topology.Result `json:"-"`
	// Path is the written config.yml.
	Path string `json:"path"`
	// Subnets maps location names to their subnets.
	Subnets map[string]string `json:"subnets"`
	// Document is the written config.yml text.
	Document []byte `json:"-"`
}

// Configure builds a new cluster configuration and writes it to
// in.Dir/config.yml.
func (u *UseCase) Configure(ctx context.Context, in *ConfigureInput) (*ConfigureOutput, error) {
	if in == nil || in.Dir == "" {
		return nil, fmt.Errorf("%w: cluster directory is required", model.ErrConfiguration)
	}
	log := logging.FromContext(ctx)
	name := filepath.Base(filepath.Clean(in.Dir))
	if err := naming.ValidateClusterName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	for _, l := range append(slices.Clone(in.Locations), in.WitnessOnlyLocation) {
		if l == "" {
			continue
		}
		if err := naming.ValidateLocationName(l); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
		}
	}

	exists, err := u.Repos.Clusters.Exists(ctx, in.Dir)
	if err != nil {
		return nil, err
	}
	if exists && !in.Force {
		return nil, fmt.Errorf("%w: %s already contains a cluster configuration (use --force to overwrite)", model.ErrConfiguration, in.Dir)
	}

	excluded, err := u.exclusions(ctx, name, in)
	if err != nil {
		return nil, err
	}
	network, prefix := in.Network, in.SubnetPrefix
	if network == "" {
		network = subnet.DefaultNetwork
	}
	if prefix == 0 {
		prefix = subnet.DefaultPrefix
	}
	alloc, err := subnet.New(network, prefix)
	if err != nil {
		return nil, err
	}
	if err := alloc.Exclude(excluded); err != nil {
		return nil, err
	}
	switch {
	case in.NoShuffle:
		alloc.NoShuffle()
	case in.Rand != nil:
		alloc.Shuffle(in.Rand)
	default:
		alloc.Shuffle(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}
	subnets, err := alloc.Take(topology.LocationCount(in.Locations, in.WitnessOnlyLocation))
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "subnets allocated", "network", network, "prefix", prefix, "excluded", len(excluded), "count", len(subnets))

	c := model.NewCluster(name, in.Architecture, in.Platform)
	res, err := topology.NewResolver(u.catalog()).Resolve(ctx, c, topology.Input{
		PostgresVersion:     in.PostgresVersion,
		ReplicationVersion:  in.ReplicationVersion,
		Locations:           in.Locations,
		WitnessOnlyLocation: in.WitnessOnlyLocation,
		Subnets:             subnets,
		Layout:              in.Layout,
		Template:            in.Template,
		RoutingMode:         in.RoutingMode,
		Repositories:        in.Repositories,
		EnableCAMO:          in.EnableCAMO,
		EnablePEM:           in.EnablePEM,
		EnablePgBackupAPI:   in.EnablePgBackupAPI,
		Hostnames:           u.Hostnames,
		HostnamePrefix:      in.HostnamePrefix,
	})
	if err != nil {
		return nil, err
	}
	c.Group().Set(topology.VarClusterID, uuid.NewString())

	doc, err := u.Repos.Clusters.Save(ctx, in.Dir, c, nil)
	if err != nil {
		return nil, err
	}
	out := &ConfigureOutput{
		Cluster:  c,
		Result:   res,
		Path:     filepath.Join(in.Dir, clustercfg.FileName),
		Subnets:  map[string]string{},
		Document: doc,
	}
	var allocs []domain.SubnetAllocation
	for _, l := range c.Locations() {
		if s := l.Subnet(); s != "" {
			out.Subnets[l.Name()] = s
			allocs = append(allocs, domain.SubnetAllocation{Cluster: name, Location: l.Name(), Subnet: s})
		}
	}
	if u.Repos.Subnets != nil {
		if err := u.Repos.Subnets.Record(ctx, name, allocs); err != nil {
			return nil, err
		}
	}
	log.Info(ctx, "cluster configured", "cluster", name, "architecture", c.Architecture(), "instances", c.Instances().Len(), "path", out.Path)
	return out, nil
}

// exclusions collects subnets already used by sibling clusters, by the
// clusters named in ExcludeSubnetsFrom and by the registry. Registry
// entries of the cluster being configured are ignored so --force can
// reuse them.
func (u *UseCase) exclusions(ctx context.Context, name string, in *ConfigureInput) ([]string, error) {
	paths, err := u.Repos.Clusters.Siblings(ctx, in.Dir)
	if err != nil {
		return nil, err
	}
	for _, p := range in.ExcludeSubnetsFrom {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			p = filepath.Join(p, clustercfg.FileName)
		}
		paths = append(paths, p)
	}
	excluded, err := clustercfg.ScanSubnets(paths...)
	if err != nil {
		return nil, err
	}
	if u.Repos.Subnets != nil {
		allocs, err := u.Repos.Subnets.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range allocs {
			if a.Cluster != name {
				excluded = append(excluded, a.Subnet)
			}
		}
	}
	return excluded, nil
}
