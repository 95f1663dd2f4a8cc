package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kompox/pgcluster/internal/logging"
)

const (
	envLogFormat = "PGCLUSTER_LOG_FORMAT"
	envLogLevel  = "PGCLUSTER_LOG_LEVEL"
	envLogOutput = "PGCLUSTER_LOG_OUTPUT"
)

func newRootCmd() *cobra.Command {
	var logOutput logging.Output
	cmd := &cobra.Command{
		Use:     "pgclusterops",
		Short:   "Postgres cluster configuration generator",
		Long:    "pgclusterops generates and evolves the config.yml describing a Postgres cluster.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help by default when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-format", "human", "Log format (human|text|json) (env "+envLogFormat+")")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error) (env "+envLogLevel+")")
	cmd.PersistentFlags().String("log-output", "-", "Log destination: - for stderr, none, a file, or a directory for timestamped files (env "+envLogOutput+")")
	cmd.PersistentFlags().Int("log-retention-days", 7, "Remove timestamped log files older than this many days")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format := flagOrEnv(c, "log-format", envLogFormat)
		level, err := logging.ParseLevel(flagOrEnv(c, "log-level", envLogLevel))
		if err != nil {
			return err
		}
		logOutput.Path = flagOrEnv(c, "log-output", envLogOutput)
		logOutput.RetentionDays, _ = c.Flags().GetInt("log-retention-days")
		if err := logOutput.Open(time.Now()); err != nil {
			return err
		}
		l, err := logging.NewWithWriter(format, level, logOutput.Writer())
		if err != nil {
			return err
		}
		l = l.With("runId", uuid.NewString())
		c.SetContext(logging.WithLogger(c.Context(), l))
		return nil
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return logOutput.Close()
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdConfigure())
	cmd.AddCommand(newCmdReconfigure())
	return cmd
}

// flagOrEnv returns the environment variable when set, else the flag.
// Flags of commands that disable flag parsing always read their defaults,
// so the environment is the only way to reach them there.
func flagOrEnv(c *cobra.Command, flag, env string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	v, _ := c.Flags().GetString(flag)
	return v
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil && executed.Context() != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(1)
	}
}
