package extract

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mca-data/epclake/internal/adapter"
)

// Certificate tables in the lake.
const (
	domesticTable    = "raw_domestic_epc_certificates_tbl"
	nonDomesticTable = "raw_non_domestic_epc_certificates_tbl"
)

// defaultStartDate is used when the target table has no records yet. The EPC
// register opened in 2008.
var defaultStartDate = time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)

// ConnectFunc opens a database connection for the updater.
type ConnectFunc func(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error)

// UpdaterConfig configures an incremental updater.
type UpdaterConfig struct {
	Client *Client

	// DatabasePath is the DuckDB file holding the certificate tables.
	DatabasePath string

	// StagingDir receives the combined staging CSV for each run.
	StagingDir string

	Logger *slog.Logger

	// Out receives the dry-run preview (os.Stdout if nil).
	Out io.Writer

	// Connect overrides connection opening. Used by tests.
	Connect ConnectFunc

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// Updater performs incremental certificate updates: it reads the high-water
// mark from the target table, fetches everything lodged since, stages a
// filtered and deduplicated CSV, and merges it into the table keyed on UPRN.
type Updater struct {
	client     *Client
	dbPath     string
	stagingDir string
	logger     *slog.Logger
	out        io.Writer
	connect    ConnectFunc
	now        func() time.Time
}

// UpdateOptions control one update run.
type UpdateOptions struct {
	// DryRun stages the data and previews the merge without touching the
	// target table.
	DryRun bool

	// FromDate overrides the start date derived from the table.
	FromDate time.Time
}

// UpdateResult summarizes a completed run.
type UpdateResult struct {
	Fetched  int
	Staged   int
	Inserted int
	Updated  int

	// StagingPath is the combined CSV written for this run.
	StagingPath string
}

// NewUpdater creates an updater, applying defaults for unset fields.
func NewUpdater(cfg UpdaterConfig) *Updater {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	connect := cfg.Connect
	if connect == nil {
		connect = func(ctx context.Context, acfg adapter.Config) (adapter.Adapter, error) {
			db, err := adapter.New(adapter.Config{Type: "duckdb"}, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, acfg); err != nil {
				return nil, err
			}
			return db, nil
		}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Updater{
		client:     cfg.Client,
		dbPath:     cfg.DatabasePath,
		stagingDir: cfg.StagingDir,
		logger:     logger,
		out:        out,
		connect:    connect,
		now:        now,
	}
}

// TableForType returns the lake table holding the given certificate type.
func TableForType(certType string) (string, error) {
	switch certType {
	case CertDomestic:
		return domesticTable, nil
	case CertNonDomestic:
		return nonDomesticTable, nil
	}
	return "", fmt.Errorf("invalid certificate type: %q", certType)
}

// Run performs one incremental update for the given certificate type.
func (u *Updater) Run(ctx context.Context, certType string, opts UpdateOptions) (*UpdateResult, error) {
	table, err := TableForType(certType)
	if err != nil {
		return nil, err
	}

	from := opts.FromDate
	if from.IsZero() {
		maxDate, found, err := u.MaxLodgementDate(ctx, table)
		if err != nil {
			return nil, err
		}
		if found {
			from = maxDate.AddDate(0, 0, 1)
		} else {
			from = defaultStartDate
		}
	}

	to := u.now()
	if from.After(to) {
		u.logger.Info("no new records to fetch", "table", table, "from", from.Format("2006-01-02"))
		return &UpdateResult{}, nil
	}
	u.logger.Info("update range", "table", table,
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	pages, err := u.client.FetchPages(ctx, certType, from, to)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		u.logger.Info("no records returned from API")
		return &UpdateResult{}, nil
	}

	fetched := 0
	for _, page := range pages {
		if n := bytes.Count(page, []byte{'\n'}) - 1; n > 0 {
			fetched += n
		}
	}

	stagingPath, staged, err := u.stagePages(ctx, certType, pages)
	if err != nil {
		return nil, err
	}
	if staged == 0 {
		u.logger.Info("no usable records after filtering")
		return &UpdateResult{Fetched: fetched, StagingPath: stagingPath}, nil
	}

	result := &UpdateResult{Fetched: fetched, Staged: staged, StagingPath: stagingPath}

	if opts.DryRun {
		fmt.Fprintf(u.out, "[dry run] would merge into %s\n", table)
		fmt.Fprintf(u.out, "  staging file: %s\n", stagingPath)
		fmt.Fprintf(u.out, "  records to upsert: %d\n", staged)
		return result, nil
	}

	result.Inserted, result.Updated, err = u.merge(ctx, stagingPath, table)
	if err != nil {
		return nil, err
	}
	u.logger.Info("merge completed", "table", table,
		"inserted", result.Inserted, "updated", result.Updated)
	return result, nil
}

// MaxLodgementDate reads the incremental high-water mark from the target
// table over a read-only connection. found is false when the table does not
// exist yet or holds no rows.
func (u *Updater) MaxLodgementDate(ctx context.Context, table string) (maxDate time.Time, found bool, err error) {
	if _, err := os.Stat(u.dbPath); err != nil {
		return time.Time{}, false, fmt.Errorf("database not found: %s", u.dbPath)
	}

	db, err := u.connect(ctx, adapter.Config{Path: u.dbPath, ReadOnly: true})
	if err != nil {
		return time.Time{}, false, err
	}
	defer db.Close()

	rows, err := db.Query(ctx, fmt.Sprintf("SELECT MAX(LODGEMENT_DATE) FROM %s", table))
	if err != nil {
		// A missing table means a first run, not a failure.
		if strings.Contains(err.Error(), "Catalog Error") {
			u.logger.Warn("table not found, starting from scratch", "table", table)
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("querying max lodgement date: %w", err)
	}
	defer rows.Close()

	var max sql.NullTime
	if rows.Next() {
		if err := rows.Scan(&max); err != nil {
			return time.Time{}, false, fmt.Errorf("scanning max lodgement date: %w", err)
		}
	}
	if !max.Valid {
		u.logger.Info("table is empty, starting from scratch", "table", table)
		return time.Time{}, false, nil
	}

	u.logger.Info("max lodgement date", "table", table, "date", max.Time.Format("2006-01-02"))
	return max.Time, true, nil
}

// stagePages normalizes the raw CSV pages and combines them into one staging
// CSV: pages are unioned by column name, rows without a UPRN dropped, and
// duplicates collapsed to the latest lodgement per UPRN.
func (u *Updater) stagePages(ctx context.Context, certType string, pages [][]byte) (string, int, error) {
	if err := os.MkdirAll(u.stagingDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating staging dir: %w", err)
	}

	pageDir, err := os.MkdirTemp("", "epclake-pages-")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(pageDir)

	pagePaths := make([]string, len(pages))
	for i, page := range pages {
		path := filepath.Join(pageDir, fmt.Sprintf("page_%d.csv", i))
		if err := os.WriteFile(path, NormalizeHeader(page), 0o644); err != nil {
			return "", 0, fmt.Errorf("writing page file: %w", err)
		}
		pagePaths[i] = path
	}

	stagingPath := filepath.Join(u.stagingDir,
		fmt.Sprintf("epc_%s_incremental_%s.csv", certType, u.now().Format("2006-01-02")))

	db, err := u.connect(ctx, adapter.Config{Path: ":memory:"})
	if err != nil {
		return "", 0, err
	}
	defer db.Close()

	quoted := make([]string, len(pagePaths))
	for i, p := range pagePaths {
		quoted[i] = "'" + p + "'"
	}
	combine := fmt.Sprintf(`CREATE TEMP TABLE staged AS
SELECT * FROM read_csv_auto([%s], union_by_name = true, all_varchar = true)
WHERE UPRN IS NOT NULL AND UPRN <> ''
QUALIFY ROW_NUMBER() OVER (PARTITION BY UPRN ORDER BY LODGEMENT_DATE DESC) = 1`,
		strings.Join(quoted, ", "))
	if err := db.Exec(ctx, combine); err != nil {
		return "", 0, fmt.Errorf("combining pages: %w", err)
	}

	staged, err := queryCount(ctx, db, "SELECT COUNT(*) FROM staged")
	if err != nil {
		return "", 0, err
	}

	if err := db.Exec(ctx, fmt.Sprintf("COPY staged TO '%s' (HEADER)", stagingPath)); err != nil {
		return "", 0, fmt.Errorf("writing staging csv: %w", err)
	}
	u.logger.Info("staged records", "count", staged, "path", stagingPath)
	return stagingPath, staged, nil
}

// merge upserts the staging CSV into the target table keyed on UPRN.
func (u *Updater) merge(ctx context.Context, stagingPath, table string) (inserted, updated int, err error) {
	db, err := u.connect(ctx, adapter.Config{Path: u.dbPath})
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	createStaging := fmt.Sprintf(
		"CREATE TEMP TABLE temp_staging AS SELECT * FROM read_csv_auto('%s', header = true)",
		stagingPath)
	if err := db.Exec(ctx, createStaging); err != nil {
		return 0, 0, fmt.Errorf("loading staging csv: %w", err)
	}

	stagingCount, err := queryCount(ctx, db, "SELECT COUNT(*) FROM temp_staging")
	if err != nil {
		return 0, 0, err
	}

	updated, err = queryCount(ctx, db, fmt.Sprintf(`SELECT COUNT(DISTINCT target.UPRN)
FROM %s AS target
INNER JOIN temp_staging AS source ON target.UPRN = source.UPRN`, table))
	if err != nil {
		return 0, 0, fmt.Errorf("counting matched records: %w", err)
	}

	mergeSQL := fmt.Sprintf(`MERGE INTO %s AS target
USING temp_staging AS source
ON target.UPRN = source.UPRN
WHEN MATCHED THEN UPDATE SET *
WHEN NOT MATCHED THEN INSERT *`, table)
	if err := db.Exec(ctx, mergeSQL); err != nil {
		return 0, 0, fmt.Errorf("merging into %s: %w", table, err)
	}

	if err := db.Exec(ctx, "DROP TABLE temp_staging"); err != nil {
		return 0, 0, err
	}
	return stagingCount - updated, updated, nil
}

func queryCount(ctx context.Context, db adapter.Adapter, query string) (int, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, rows.Err()
}
