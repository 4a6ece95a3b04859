package docs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mca-data/epclake/internal/adapter"
)

// commentSpec is the YAML shape for declarative comments:
//
//	raw_domestic_epc_certificates_tbl:
//	  comment: Raw domestic certificates as served by the register
//	  columns:
//	    UPRN: Unique property reference number
//	    LODGEMENT_DATE: Date the certificate was lodged
type commentSpec struct {
	Comment string            `yaml:"comment"`
	Columns map[string]string `yaml:"columns"`
}

// Applier applies COMMENT ON statements from a YAML file to the database.
type Applier struct {
	logger  *slog.Logger
	connect func(ctx context.Context) (adapter.Adapter, error)
}

// NewApplier creates an applier writing to the given database file.
func NewApplier(databasePath string, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Applier{
		logger: logger,
		connect: func(ctx context.Context) (adapter.Adapter, error) {
			db, err := adapter.New(adapter.Config{Type: "duckdb"}, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, adapter.Config{Path: databasePath}); err != nil {
				return nil, err
			}
			return db, nil
		},
	}
}

// ApplyFile reads a comment YAML file and applies every statement. Returns
// the number of comments applied.
func (a *Applier) ApplyFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading comment file: %w", err)
	}

	var specs map[string]commentSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return 0, fmt.Errorf("parsing comment file %s: %w", path, err)
	}

	statements := BuildCommentStatements(specs)
	if len(statements) == 0 {
		return 0, nil
	}

	db, err := a.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	for _, stmt := range statements {
		if err := db.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("applying comment: %w", err)
		}
	}
	a.logger.Info("applied comments", "count", len(statements), "file", path)
	return len(statements), nil
}

// BuildCommentStatements renders deterministic COMMENT ON statements from
// the parsed spec, tables and columns in sorted order.
func BuildCommentStatements(specs map[string]commentSpec) []string {
	tables := make([]string, 0, len(specs))
	for table := range specs {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var statements []string
	for _, table := range tables {
		spec := specs[table]
		if spec.Comment != "" {
			statements = append(statements, fmt.Sprintf(
				"COMMENT ON TABLE %s IS '%s'", table, escapeSQL(spec.Comment)))
		}

		columns := make([]string, 0, len(spec.Columns))
		for column := range spec.Columns {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		for _, column := range columns {
			statements = append(statements, fmt.Sprintf(
				"COMMENT ON COLUMN %s.%s IS '%s'", table, column, escapeSQL(spec.Columns[column])))
		}
	}
	return statements
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
