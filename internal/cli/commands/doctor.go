package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mca-data/epclake/internal/doctor"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	var (
		createIfMissing bool
		skipPostgres    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the environment before running transformations",
		Long: `Check the database file, landing directories, declared bronze source
files, and the PostGIS connection.`,
		Example: `  # Full check
  epclake doctor

  # First-time setup: create the database with extensions installed
  epclake doctor --create-if-missing

  # Off VPN
  epclake doctor --skip-postgres`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := doctor.New(getConfig(cmd.Context()), getLogger(cmd.Context()), cmd.OutOrStdout())

			passed, _ := d.Run(cmd.Context(), doctor.Options{
				CreateIfMissing: createIfMissing,
				SkipPostgres:    skipPostgres,
			})
			if !passed {
				return fmt.Errorf("prerequisites check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&createIfMissing, "create-if-missing", false, "Create the database with extensions if it does not exist")
	cmd.Flags().BoolVar(&skipPostgres, "skip-postgres", false, "Skip the PostGIS connectivity probe")

	return cmd
}
