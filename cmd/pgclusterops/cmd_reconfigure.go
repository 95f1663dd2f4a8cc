package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kompox/pgcluster/domain/arch"
	"github.com/kompox/pgcluster/internal/transmogrify"
	"github.com/kompox/pgcluster/usecase/cluster"
	"github.com/kompox/pgcluster/usecase/transmogrifiers"
)

func newCmdReconfigure() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconfigure <cluster-dir> [--describe|--check] [--output file] [--diff] [change options]",
		Short: "Change the configuration of an existing cluster",
		Long: `Change <cluster-dir>/config.yml. The change options select what to do;
run with --help to list them. --describe shows the planned changes and
--check validates them, neither writes anything.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if slices.Contains(args, "--help") || slices.Contains(args, "-h") {
				return printReconfigureHelp(cmd)
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "reconfigure", strings.Join(args, " "))
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := u.Reconfigure(ctx, &cluster.ReconfigureInput{Args: args})
			if out != nil {
				printReconfigureOutput(cmd.OutOrStdout(), out)
			}
			return err
		},
	}
	return cmd
}

func printReconfigureOutput(w io.Writer, out *cluster.ReconfigureOutput) {
	if out.Check != nil {
		fmt.Fprint(w, out.Check.String())
	}
	switch out.Mode {
	case cluster.ModeDescribe:
		if strings.TrimSpace(out.Description) == "" {
			fmt.Fprintln(w, "No changes.")
			return
		}
		fmt.Fprint(w, out.Description)
	case cluster.ModeCheck:
		if out.Check != nil && !out.Check.HasErrors() {
			fmt.Fprintln(w, "Check passed.")
		}
	case cluster.ModeApply:
		if out.Diff != "" {
			fmt.Fprint(w, out.Diff)
		}
		if out.Path == "" {
			return
		}
		if out.Changed {
			fmt.Fprintf(w, "Wrote %s (%s)\n", out.Path, strings.Join(out.Selected, ", "))
		} else {
			fmt.Fprintf(w, "Wrote %s (no changes)\n", out.Path)
		}
	}
}

func printReconfigureHelp(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n\nUsage:\n  %s %s\n\nOptions:\n", cmd.Long, cmd.Root().Name(), cmd.Use)
	for _, o := range cluster.BaseOptions() {
		printOption(w, o)
	}
	for _, cl := range transmogrifiers.Registry(arch.DefaultCatalog()) {
		t := cl.New()
		fmt.Fprintf(w, "\n%s:\n", cl.Name)
		for _, o := range t.Options() {
			printOption(w, o)
		}
	}
	return nil
}

func printOption(w io.Writer, o transmogrify.Option) {
	arg := ""
	if o.Kind != transmogrify.KindBool {
		arg = " " + o.Kind.String()
	}
	usage := o.Usage
	if len(o.Choices) > 0 {
		usage += " (" + strings.Join(o.Choices, "|") + ")"
	}
	if o.Required {
		usage += " (required)"
	}
	fmt.Fprintf(w, "  --%-28s %s\n", o.Name+arg, usage)
}
