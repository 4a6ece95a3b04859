// Package docs generates human-readable schema documentation from the lake
// and applies declarative column comments.
package docs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/mca-data/epclake/internal/adapter"
)

// TableDoc describes one documented table or view.
type TableDoc struct {
	Schema  string
	Name    string
	IsView  bool
	Comment string
	Columns []ColumnDoc
}

// ColumnDoc describes one column.
type ColumnDoc struct {
	Name    string
	Type    string
	Comment string
}

// Generator introspects a database and renders Markdown documentation.
type Generator struct {
	logger  *slog.Logger
	connect func(ctx context.Context) (adapter.Adapter, error)
}

// NewGenerator creates a generator reading from the given database file.
// connect may be nil, in which case a read-only DuckDB connection is used.
func NewGenerator(databasePath string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		logger: logger,
		connect: func(ctx context.Context) (adapter.Adapter, error) {
			db, err := adapter.New(adapter.Config{Type: "duckdb"}, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, adapter.Config{Path: databasePath, ReadOnly: true}); err != nil {
				return nil, err
			}
			return db, nil
		},
	}
}

// Inspect reads every user table and view with its columns and comments.
func (g *Generator) Inspect(ctx context.Context) ([]TableDoc, error) {
	db, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := g.readTables(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := g.readColumns(ctx, db, tables); err != nil {
		return nil, err
	}

	docs := make([]TableDoc, 0, len(tables))
	for _, t := range tables {
		docs = append(docs, *t)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Schema != docs[j].Schema {
			return docs[i].Schema < docs[j].Schema
		}
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}

func (g *Generator) readTables(ctx context.Context, db adapter.Adapter) (map[string]*TableDoc, error) {
	rows, err := db.Query(ctx, `SELECT schema_name, table_name, comment, false AS is_view
FROM duckdb_tables() WHERE NOT internal
UNION ALL
SELECT schema_name, view_name, comment, true AS is_view
FROM duckdb_views() WHERE NOT internal
ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]*TableDoc)
	for rows.Next() {
		var (
			schema, name string
			comment      *string
			isView       bool
		)
		if err := rows.Scan(&schema, &name, &comment, &isView); err != nil {
			return nil, err
		}
		doc := &TableDoc{Schema: schema, Name: name, IsView: isView}
		if comment != nil {
			doc.Comment = *comment
		}
		tables[schema+"."+name] = doc
	}
	return tables, rows.Err()
}

func (g *Generator) readColumns(ctx context.Context, db adapter.Adapter, tables map[string]*TableDoc) error {
	rows, err := db.Query(ctx, `SELECT schema_name, table_name, column_name, data_type, comment
FROM duckdb_columns() WHERE NOT internal
ORDER BY schema_name, table_name, column_index`)
	if err != nil {
		return fmt.Errorf("listing columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			schema, table, column, dataType string
			comment                         *string
		)
		if err := rows.Scan(&schema, &table, &column, &dataType, &comment); err != nil {
			return err
		}
		doc, ok := tables[schema+"."+table]
		if !ok {
			continue
		}
		col := ColumnDoc{Name: column, Type: dataType}
		if comment != nil {
			col.Comment = *comment
		}
		doc.Columns = append(doc.Columns, col)
	}
	return rows.Err()
}

// RenderMarkdown writes one Markdown document covering all tables, grouped
// by schema.
func RenderMarkdown(w io.Writer, docs []TableDoc) error {
	var b strings.Builder
	b.WriteString("# Data Lake Schema\n")

	currentSchema := ""
	for _, doc := range docs {
		if doc.Schema != currentSchema {
			currentSchema = doc.Schema
			fmt.Fprintf(&b, "\n## Schema `%s`\n", currentSchema)
		}

		kind := "table"
		if doc.IsView {
			kind = "view"
		}
		fmt.Fprintf(&b, "\n### `%s` (%s)\n\n", doc.Name, kind)
		if doc.Comment != "" {
			b.WriteString(doc.Comment + "\n\n")
		}

		b.WriteString("| Column | Type | Description |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, col := range doc.Columns {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n",
				col.Name, col.Type, escapeMarkdown(col.Comment))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
