package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kompox/pgcluster/adapters/hostnames"
	"github.com/kompox/pgcluster/adapters/store/file"
	"github.com/kompox/pgcluster/adapters/store/inmem"
	"github.com/kompox/pgcluster/adapters/store/rdb"
	"github.com/kompox/pgcluster/domain"
	"github.com/kompox/pgcluster/usecase/cluster"
)

const envSubnetRegistry = "PGCLUSTER_SUBNET_REGISTRY"

// buildClusterUseCase creates the cluster use case. The subnet registry
// and host name helper are taken from cmd's flags when it has them.
func buildClusterUseCase(cmd *cobra.Command) (*cluster.UseCase, error) {
	repos := &cluster.Repos{Clusters: file.NewClusterStore()}

	registryURL := os.Getenv(envSubnetRegistry)
	if f := cmd.Flags().Lookup("subnet-registry"); f != nil && f.Changed {
		registryURL = f.Value.String()
	}
	reg, err := buildSubnetRegistry(registryURL)
	if err != nil {
		return nil, err
	}
	repos.Subnets = reg

	var hostPort domain.HostnamePort = &hostnames.Sequence{}
	if f := cmd.Flags().Lookup("hostnames-from"); f != nil && f.Value.String() != "" {
		fields := strings.Fields(f.Value.String())
		hostPort = &hostnames.Exec{Command: fields[0], Args: fields[1:]}
	}
	return &cluster.UseCase{Repos: repos, Hostnames: hostPort}, nil
}

// buildSubnetRegistry opens the registry named by url: "" for none,
// "memory" for a process-local one, or a sqlite: URL.
func buildSubnetRegistry(url string) (domain.SubnetRegistry, error) {
	switch url {
	case "", "none":
		return nil, nil
	case "memory":
		return inmem.NewSubnetRegistry(), nil
	}
	db, err := rdb.OpenFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("opening subnet registry: %w", err)
	}
	if err := rdb.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating subnet registry: %w", err)
	}
	return rdb.NewSubnetRegistry(db), nil
}
