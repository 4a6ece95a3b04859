package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mca-data/epclake/internal/docs"
)

// NewDocsCommand creates the docs command with its subcommands.
func NewDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate schema documentation and manage comments",
	}

	cmd.AddCommand(newDocsGenerateCommand())
	cmd.AddCommand(newDocsCommentCommand())
	return cmd
}

func newDocsGenerateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render Markdown documentation from the database schema",
		Long: `Introspect every table and view in the lake and render a Markdown
document with columns, types, and the comments stored in the database.`,
		Example: `  epclake docs generate --output docs/schema.md`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())

			g := docs.NewGenerator(cfg.Database, getLogger(cmd.Context()))
			tableDocs, err := g.Inspect(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" {
				return docs.RenderMarkdown(cmd.OutOrStdout(), tableDocs)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := docs.RenderMarkdown(f, tableDocs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Documented %d tables in %s\n", len(tableDocs), output)
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newDocsCommentCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Apply table and column comments from a YAML file",
		Long: `Apply COMMENT ON statements declared in a YAML file:

  raw_domestic_epc_certificates_tbl:
    comment: Raw domestic certificates as served by the register
    columns:
      UPRN: Unique property reference number`,
		Example: `  epclake docs comment --file schemas/comments.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())

			a := docs.NewApplier(cfg.Database, getLogger(cmd.Context()))
			applied, err := a.ApplyFile(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d comments\n", applied)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with comments to apply")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
