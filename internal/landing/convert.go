package landing

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mca-data/epclake/internal/adapter"
)

// districtCode matches an ONS local authority district code (England or
// Wales) embedded in a directory name such as
// "domestic-E06000023-Bristol-City-of".
var districtCode = regexp.MustCompile(`(E|W)\d{8}`)

// ConnectFunc opens a database connection for conversions.
type ConnectFunc func(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error)

// Converter turns landed CSV files into Parquet using the database engine.
type Converter struct {
	logger  *slog.Logger
	connect ConnectFunc
}

// NewConverter creates a converter. A nil connect uses an in-memory DuckDB
// connection per call.
func NewConverter(logger *slog.Logger, connect ConnectFunc) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if connect == nil {
		connect = func(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
			db, err := adapter.New(adapter.Config{Type: "duckdb"}, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, cfg); err != nil {
				return nil, err
			}
			return db, nil
		}
	}
	return &Converter{logger: logger, connect: connect}
}

// CSVToParquet converts one CSV to Parquet. Every column is read as VARCHAR
// so a stray value can never fail the load; types are cast later in the
// silver layer. outputParquet defaults to the input path with a .parquet
// extension.
func (c *Converter) CSVToParquet(ctx context.Context, inputCSV, outputParquet string) error {
	if outputParquet == "" {
		outputParquet = strings.TrimSuffix(inputCSV, filepath.Ext(inputCSV)) + ".parquet"
	}

	db, err := c.connect(ctx, adapter.Config{Path: ":memory:"})
	if err != nil {
		return err
	}
	defer db.Close()

	query := fmt.Sprintf(`COPY (
    SELECT * FROM read_csv_auto('%s', all_varchar = true, filename = true)
) TO '%s' (FORMAT PARQUET, COMPRESSION lz4)`,
		filepath.ToSlash(inputCSV), filepath.ToSlash(outputParquet))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("converting %s: %w", inputCSV, err)
	}

	c.logger.Info("converted to parquet", "input", inputCSV, "output", outputParquet)
	return nil
}

// HivePartitionTree converts a nested tree of bulk CSV downloads into a hive
// partitioned Parquet layout keyed on local authority district:
//
//	sourceRoot/domestic-E06000023-Bristol-City-of/certificates.csv
//	-> stagingRoot/lad=E06000023/data.parquet
//
// Directories without a recognizable district code keep their name as the
// partition value. Paths containing "unknown" are skipped. A non-nil schema
// types the columns during the read; otherwise everything loads as VARCHAR.
func (c *Converter) HivePartitionTree(ctx context.Context, sourceRoot, stagingRoot string, schema Schema) error {
	var csvFiles []string
	err := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			csvFiles = append(csvFiles, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", sourceRoot, err)
	}
	c.logger.Info("found csv files to partition", "count", len(csvFiles))

	db, err := c.connect(ctx, adapter.Config{Path: ":memory:"})
	if err != nil {
		return err
	}
	defer db.Close()

	for _, csvFile := range csvFiles {
		parent := filepath.Base(filepath.Dir(csvFile))
		district := districtCode.FindString(parent)
		if district == "" {
			district = parent
		}

		if strings.Contains(csvFile, "unknown") || strings.Contains(district, "unknown") {
			c.logger.Warn("skipping unknown district", "file", csvFile)
			continue
		}

		outputDir := filepath.Join(stagingRoot, "lad="+district)
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("creating partition dir: %w", err)
		}
		outputFile := filepath.Join(outputDir, "data.parquet")

		read := fmt.Sprintf("read_csv_auto('%s', all_varchar = true)", filepath.ToSlash(csvFile))
		if schema != nil {
			read = fmt.Sprintf("read_csv('%s', types = %s)", filepath.ToSlash(csvFile), schema.TypeLiteral())
		}
		query := fmt.Sprintf("COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET, COMPRESSION lz4)",
			read, filepath.ToSlash(outputFile))
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("partitioning %s: %w", csvFile, err)
		}
		c.logger.Info("partitioned", "district", district, "output", outputFile)
	}
	return nil
}
