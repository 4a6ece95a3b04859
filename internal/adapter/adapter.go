// Package adapter provides database adapter interfaces and implementations
// for the epclake transformation engine.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "duckdb")
	Type string

	// Path is the file path for file-based databases.
	// Use ":memory:" for an in-memory database.
	Path string

	// ReadOnly opens the database without write access where the driver
	// supports it.
	ReadOnly bool

	// Extensions lists engine extensions to load on the connection.
	// Extension loading does not persist across connections, so these are
	// re-applied every time Connect is called.
	Extensions []string
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection using the provided config and loads
	// any configured engine extensions on it.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// LoadCSV loads data from a CSV file into a table, creating or replacing
	// it with an inferred schema.
	LoadCSV(ctx context.Context, tableName string, filePath string) error
}
