package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mca-data/epclake/internal/transform"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		dryRun   bool
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "run [all|layer...]",
		Short: "Run SQL transformations in dependency order",
		Long: `Execute the layered SQL transformations against the data lake.

Without arguments, or with the keyword "all", every configured layer runs in
order (bronze, silver, gold). Naming layers restricts the run to those
layers, still in configured order. Modules within a layer execute in
dependency order.`,
		Example: `  # Run every layer
  epclake run all

  # Run only the bronze layer, checking source files first
  epclake run bronze --validate

  # Preview the silver plan without executing anything
  epclake run silver --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())

			o := transform.New(transform.Config{
				DatabasePath: cfg.Database,
				SQLRoot:      cfg.SQLRoot,
				BaseDir:      cfg.ProjectRoot,
				Layers:       cfg.Layers,
				Extensions:   cfg.Extensions,
				Logger:       getLogger(cmd.Context()),
				Out:          cmd.OutOrStdout(),
			})

			opts := transform.RunOptions{DryRun: dryRun, Validate: validate}
			start := time.Now()

			if runEveryLayer(args) {
				if err := o.ExecuteAll(cmd.Context(), opts); err != nil {
					return err
				}
			} else {
				for _, layer := range args {
					if err := o.ExecuteLayer(cmd.Context(), layer, opts); err != nil {
						return err
					}
				}
			}

			if !dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n",
					time.Since(start).Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the execution plan without running any SQL")
	cmd.Flags().BoolVar(&validate, "validate", false, "Check declared source files before running the bronze layer")

	return cmd
}

// runEveryLayer reports whether the arguments request a full run: no layers
// named, or the keyword "all" among them.
func runEveryLayer(args []string) bool {
	if len(args) == 0 {
		return true
	}
	for _, arg := range args {
		if arg == "all" {
			return true
		}
	}
	return false
}
