package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDuckDBAdapter_ConnectInMemory(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	if err := a.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect to in-memory DuckDB: %v", err)
	}
	defer a.Close()
}

func TestDuckDBAdapter_ConnectFileBased(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.duckdb")

	if err := a.Connect(ctx, Config{Path: dbPath}); err != nil {
		t.Fatalf("failed to connect to file-based DuckDB: %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestDuckDBAdapter_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	if err := a.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	err := a.Exec(ctx, `
		CREATE TABLE certificates (
			uprn BIGINT,
			rating VARCHAR
		)
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	if err := a.Exec(ctx, `INSERT INTO certificates VALUES (100023336956, 'C'), (10013250093, 'D')`); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	rows, err := a.Query(ctx, `SELECT COUNT(*) FROM certificates`)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	defer rows.Close()

	var count int64
	if !rows.Next() {
		t.Fatal("expected a row")
	}
	if err := rows.Scan(&count); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}

func TestDuckDBAdapter_ExecWithoutConnect(t *testing.T) {
	a := NewDuckDBAdapter(nil)
	if err := a.Exec(context.Background(), "SELECT 1"); err == nil {
		t.Error("expected error when executing without a connection")
	}
}

func TestDuckDBAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	a := NewDuckDBAdapter(nil)

	if err := a.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "postcodes.csv")
	csvContent := "postcode,lsoa\nBS1 1AA,E01014540\nBS2 0BB,E01014541\n"
	if err := os.WriteFile(csvPath, []byte(csvContent), 0o644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}

	if err := a.LoadCSV(ctx, "postcodes", csvPath); err != nil {
		t.Fatalf("failed to load CSV: %v", err)
	}

	rows, err := a.Query(ctx, "SELECT COUNT(*) FROM postcodes")
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		_ = rows.Scan(&count)
	}
	if count != 2 {
		t.Errorf("expected 2 rows loaded, got %d", count)
	}
}

func TestDuckDBAdapter_ReadOnly(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "ro.duckdb")

	// Create the database first.
	writer := NewDuckDBAdapter(nil)
	if err := writer.Connect(ctx, Config{Path: dbPath}); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := writer.Exec(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	writer.Close()

	reader := NewDuckDBAdapter(nil)
	if err := reader.Connect(ctx, Config{Path: dbPath, ReadOnly: true}); err != nil {
		t.Fatalf("failed to connect read-only: %v", err)
	}
	defer reader.Close()

	if err := reader.Exec(ctx, "INSERT INTO t VALUES (1)"); err == nil {
		t.Error("expected write to fail on read-only connection")
	}
}
