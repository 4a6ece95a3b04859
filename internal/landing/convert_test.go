package landing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mca-data/epclake/internal/adapter"
	"github.com/mca-data/epclake/internal/testutil"
)

// parquetRowCount reads a Parquet file back through DuckDB.
func parquetRowCount(t *testing.T, path string) int {
	t.Helper()

	db, err := adapter.New(adapter.Config{Type: "duckdb"}, testutil.NewTestLogger(t))
	if err != nil {
		t.Fatalf("create adapter: %v", err)
	}
	ctx := context.Background()
	if err := db.Connect(ctx, adapter.Config{Path: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s')", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	return count
}

func TestConverter_CSVToParquet(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "certificates.csv")
	csv := "LMK_KEY,UPRN\na,1\nb,2\nc,not-a-number\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	c := NewConverter(testutil.NewTestLogger(t), nil)
	if err := c.CSVToParquet(context.Background(), input, ""); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	output := filepath.Join(dir, "certificates.parquet")
	// all_varchar keeps the mixed UPRN column from failing the load.
	if got := parquetRowCount(t, output); got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestConverter_HivePartitionTree(t *testing.T) {
	source := t.TempDir()
	staging := t.TempDir()

	dirs := map[string]string{
		"domestic-E06000023-Bristol-City-of": "a,1\nb,2\n",
		"domestic-W06000015-Cardiff":         "c,3\n",
		"unknown-district":                   "d,4\n",
	}
	for dir, rows := range dirs {
		full := filepath.Join(source, dir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		content := "LMK_KEY,UPRN\n" + rows
		if err := os.WriteFile(filepath.Join(full, "certificates.csv"), []byte(content), 0o644); err != nil {
			t.Fatalf("write csv: %v", err)
		}
	}

	c := NewConverter(testutil.NewTestLogger(t), nil)
	schema := Schema{{"LMK_KEY", "VARCHAR"}, {"UPRN", "BIGINT"}}
	if err := c.HivePartitionTree(context.Background(), source, staging, schema); err != nil {
		t.Fatalf("partitioning failed: %v", err)
	}

	bristol := filepath.Join(staging, "lad=E06000023", "data.parquet")
	if got := parquetRowCount(t, bristol); got != 2 {
		t.Errorf("bristol partition: expected 2 rows, got %d", got)
	}
	cardiff := filepath.Join(staging, "lad=W06000015", "data.parquet")
	if got := parquetRowCount(t, cardiff); got != 1 {
		t.Errorf("cardiff partition: expected 1 row, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(staging, "lad=unknown-district")); !os.IsNotExist(err) {
		t.Error("unknown district must be skipped")
	}
}
