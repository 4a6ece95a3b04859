// Package doctor verifies the environment before transformations run:
// the database file, landing directories, bronze source files, and the
// PostGIS connection reached through the postgres extension.
package doctor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mca-data/epclake/internal/adapter"
	"github.com/mca-data/epclake/internal/config"
	"github.com/mca-data/epclake/internal/transform"
)

// Status classifies a check result.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusSkip Status = "SKIP"
)

// CheckResult is one verified item.
type CheckResult struct {
	Check  string
	Status Status
	Detail string
}

// Options control a doctor run.
type Options struct {
	// CreateIfMissing creates the database file with the configured
	// extensions installed when it does not exist.
	CreateIfMissing bool

	// SkipPostgres skips the PostGIS connectivity probe. Useful off VPN.
	SkipPostgres bool
}

// Doctor runs environment checks against a loaded configuration.
type Doctor struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	// pgPing probes the PostGIS connection. Injectable for tests; defaults
	// to a pgx connect-and-ping roundtrip.
	pgPing func(ctx context.Context, dsn string) error
}

// New creates a doctor for the given configuration.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer) *Doctor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if out == nil {
		out = os.Stdout
	}
	return &Doctor{
		cfg:    cfg,
		logger: logger,
		out:    out,
		pgPing: pingPostgres,
	}
}

func pingPostgres(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// Run executes all checks and renders a summary table. It returns true when
// nothing failed (warnings and skips do not fail the run).
func (d *Doctor) Run(ctx context.Context, opts Options) (bool, []CheckResult) {
	var results []CheckResult

	results = append(results, d.checkDatabase(ctx, opts))
	results = append(results, d.checkLandingDirs()...)
	results = append(results, d.checkBronzeSources()...)
	results = append(results, d.checkPostgres(ctx, opts))

	passed := true
	for _, r := range results {
		if r.Status == StatusFail {
			passed = false
		}
	}

	d.render(results, passed)
	return passed, results
}

func (d *Doctor) checkDatabase(ctx context.Context, opts Options) CheckResult {
	check := "database file"

	if info, err := os.Stat(d.cfg.Database); err == nil {
		return CheckResult{check, StatusOK,
			fmt.Sprintf("%s (%.2f GB)", d.cfg.Database, float64(info.Size())/(1<<30))}
	}

	if !opts.CreateIfMissing {
		return CheckResult{check, StatusFail,
			fmt.Sprintf("not found at %s (rerun with --create-if-missing)", d.cfg.Database)}
	}

	if err := d.createDatabase(ctx); err != nil {
		return CheckResult{check, StatusFail, fmt.Sprintf("creation failed: %v", err)}
	}
	return CheckResult{check, StatusOK,
		fmt.Sprintf("created %s with extensions %v", d.cfg.Database, d.cfg.Extensions)}
}

// createDatabase creates the database file and installs the configured
// extensions so later connections only need LOAD.
func (d *Doctor) createDatabase(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.cfg.Database), 0o755); err != nil {
		return err
	}

	db, err := adapter.New(adapter.Config{Type: "duckdb"}, d.logger)
	if err != nil {
		return err
	}
	if err := db.Connect(ctx, adapter.Config{Path: d.cfg.Database}); err != nil {
		return err
	}
	defer db.Close()

	for _, ext := range d.cfg.Extensions {
		if err := db.Exec(ctx, fmt.Sprintf("INSTALL %s;", ext)); err != nil {
			return fmt.Errorf("installing extension %s: %w", ext, err)
		}
	}
	return nil
}

func (d *Doctor) checkLandingDirs() []CheckResult {
	dirs := map[string]string{
		"manual landing dir":    d.cfg.Landing.Manual,
		"automated landing dir": d.cfg.Landing.Automated,
		"staging dir":           d.cfg.StagingDir,
	}

	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []CheckResult
	for _, name := range names {
		dir := dirs[name]
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			results = append(results, CheckResult{name, StatusOK, dir})
		} else {
			results = append(results, CheckResult{name, StatusWarn,
				fmt.Sprintf("%s does not exist", dir)})
		}
	}
	return results
}

// checkBronzeSources verifies every source file the bronze modules declare.
func (d *Doctor) checkBronzeSources() []CheckResult {
	o := transform.New(transform.Config{
		SQLRoot: d.cfg.SQLRoot,
		Layers:  d.cfg.Layers,
		Logger:  d.logger,
	})

	modules, err := o.DiscoverModules()
	if err != nil {
		return []CheckResult{{"bronze sources", StatusFail, err.Error()}}
	}

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []CheckResult
	for _, name := range names {
		m := modules[name]
		if m.Layer != "bronze" {
			continue
		}
		for _, src := range m.SourceFiles {
			path := src
			if !filepath.IsAbs(path) {
				path = filepath.Join(d.cfg.ProjectRoot, src)
			}
			if info, err := os.Stat(path); err == nil {
				results = append(results, CheckResult{"source " + src, StatusOK,
					fmt.Sprintf("%.1f MB", float64(info.Size())/(1<<20))})
			} else {
				results = append(results, CheckResult{"source " + src, StatusFail, "not found"})
			}
		}
	}
	if len(results) == 0 {
		results = append(results, CheckResult{"bronze sources", StatusOK, "no source files declared"})
	}
	return results
}

func (d *Doctor) checkPostgres(ctx context.Context, opts Options) CheckResult {
	check := "postgis connection"

	if opts.SkipPostgres {
		return CheckResult{check, StatusSkip, "skipped"}
	}
	if d.cfg.Postgres.DSN == "" {
		return CheckResult{check, StatusSkip, "postgres.dsn not configured"}
	}

	if err := d.pgPing(ctx, d.cfg.Postgres.DSN); err != nil {
		return CheckResult{check, StatusFail,
			fmt.Sprintf("unreachable (VPN down?): %v", err)}
	}
	return CheckResult{check, StatusOK, "connected"}
}

func (d *Doctor) render(results []CheckResult, passed bool) {
	t := table.NewWriter()
	t.SetOutputMirror(d.out)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Check, r.Status, r.Detail})
	}
	t.Render()

	if passed {
		fmt.Fprintln(d.out, "All checks passed.")
	} else {
		fmt.Fprintln(d.out, "Some checks failed.")
	}
}
