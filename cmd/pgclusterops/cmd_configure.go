package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/subnet"
	"github.com/kompox/pgcluster/usecase/cluster"
)

func newCmdConfigure() *cobra.Command {
	var (
		in           cluster.ConfigureInput
		topologyFile string
		noShuffle    bool
	)
	cmd := &cobra.Command{
		Use:   "configure <cluster-dir>",
		Short: "Generate the configuration of a new cluster",
		Long: `Generate <cluster-dir>/config.yml for a new cluster. The directory name
is the cluster name. Subnets already used by sibling clusters, by the
clusters given with --exclude-subnets-from and by the subnet registry are
not reused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "configure", args[0])
			defer func() { cleanup(err) }()

			if topologyFile != "" {
				if in.Template, err = os.ReadFile(topologyFile); err != nil {
					return fmt.Errorf("%w: reading topology template: %v", model.ErrConfiguration, err)
				}
			}
			in.Dir = args[0]
			in.NoShuffle = noShuffle

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := u.Configure(ctx, &in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Configured %s cluster %s in %s\n", out.Cluster.Architecture(), out.Cluster.Name(), out.Path)
			for _, l := range out.Cluster.Locations() {
				fmt.Fprintf(w, "  %s: %s\n", l.Name(), out.Subnets[l.Name()])
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.Architecture, "architecture", "a", "", "Architecture (M1|BDR-Always-ON|PGD-Always-ON|PGD-X)")
	f.StringVar(&in.Platform, "platform", "aws", "Platform recorded in the configuration")
	f.StringVar(&in.PostgresVersion, "postgres-version", "", "Postgres major version (default depends on the architecture)")
	f.StringVar(&in.ReplicationVersion, "replication-version", "", "Replication software major version (default depends on the architecture)")
	f.StringSliceVar(&in.Locations, "location-names", []string{"first"}, "Comma separated location names")
	f.IntVar(&in.Layout.DataNodesPerLocation, "data-nodes-per-location", 0, "Data nodes per location (0 selects the architecture default)")
	f.StringVar(&in.WitnessOnlyLocation, "witness-only-location", "", "Location that holds only a witness node")
	f.IntVar(&in.Layout.ProxyNodesPerLocation, "proxy-nodes-per-location", 0, "Dedicated proxy nodes per location (0 runs proxies on the data nodes)")
	f.BoolVar(&in.Layout.Backup, "enable-backup", true, "Add a barman backup server per location")
	f.StringVar(&topologyFile, "topology", "", "Rendered topology template (YAML) to use instead of the built-in layout")

	f.StringVar(&in.Network, "network", subnet.DefaultNetwork, "IPv4 block to allocate location subnets from")
	f.IntVar(&in.SubnetPrefix, "subnet-prefix", subnet.DefaultPrefix, fmt.Sprintf("Prefix length of each location subnet (%d..%d)", subnet.MinPrefix+1, subnet.MaxPrefix-1))
	f.BoolVar(&noShuffle, "no-shuffle-subnets", false, "Allocate subnets in address order")
	f.StringSliceVar(&in.ExcludeSubnetsFrom, "exclude-subnets-from", nil, "Cluster directories or config.yml files whose subnets must not be reused")
	f.String("subnet-registry", "", "Subnet registry: none, memory or sqlite:<path> (env "+envSubnetRegistry+")")

	f.String("hostnames-from", "", "Command printing host names, run as '<command> --count N [--prefix P]'")
	f.StringVar(&in.HostnamePrefix, "hostnames-prefix", "", "Prefix passed to the host name generator")

	f.BoolVar(&in.EnableCAMO, "enable-camo", false, "Pair data nodes for commit-at-most-once")
	f.BoolVar(&in.EnablePEM, "enable-pem", false, "Add a PEM server and agents")
	f.BoolVar(&in.EnablePgBackupAPI, "enable-pg-backup-api", false, "Add pg-backup-api to barman servers")
	f.StringVar(&in.RoutingMode, "pgd-proxy-routing", "", fmt.Sprintf("Write routing mode (%s|%s)", arch.RoutingGlobal, arch.RoutingLocal))
	f.StringSliceVar(&in.Repositories, "edb-repositories", nil, "Package repositories (default depends on the architecture)")

	f.BoolVar(&in.Force, "force", false, "Overwrite an existing configuration")
	_ = cmd.MarkFlagRequired("architecture")
	return cmd
}
