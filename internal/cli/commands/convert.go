package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mca-data/epclake/internal/landing"
)

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	var (
		input      string
		output     string
		source     string
		staging    string
		schemaPath string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert landed CSV files to Parquet",
		Long: `Convert landed certificate CSVs to Parquet for the bronze layer.

With --input, converts a single CSV (columns read as VARCHAR so a stray
value never fails the load). Without it, converts the whole landing tree
into a hive partitioned layout keyed on local authority district
(lad=E06000023/data.parquet).`,
		Example: `  # Convert one file
  epclake convert --input data_lake/landing/manual/certificates.csv

  # Partition the manual landing tree into staging
  epclake convert --schema schemas/epc_domestic_certificates_schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd.Context())
			logger := getLogger(cmd.Context())

			converter := landing.NewConverter(logger, nil)

			if input != "" {
				if err := converter.CSVToParquet(cmd.Context(), input, output); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Converted", input)
				return nil
			}

			if source == "" {
				source = cfg.Landing.Manual
			}
			if staging == "" {
				staging = cfg.StagingDir
			}

			var schema landing.Schema
			if schemaPath != "" {
				var err error
				schema, err = landing.LoadSchema(schemaPath)
				if err != nil {
					return err
				}
			}

			if err := converter.HivePartitionTree(cmd.Context(), source, staging, schema); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Partitioned %s into %s\n", source, staging)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Convert a single CSV file")
	cmd.Flags().StringVar(&output, "output", "", "Output Parquet path (default: input with .parquet extension)")
	cmd.Flags().StringVar(&source, "source", "", "Landing tree to partition (default: landing.manual)")
	cmd.Flags().StringVar(&staging, "staging", "", "Partition output directory (default: staging_dir)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema JSON typing the columns during the read")

	return cmd
}
