package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mca-data/epclake/internal/adapter"
)

// ConnectFunc opens a connection to the analytical database with the
// engine extensions a transformation may need already loaded.
type ConnectFunc func(ctx context.Context) (adapter.Adapter, error)

// Config holds process-wide transformation configuration. Constructed once
// per invocation; not mutated during orchestration.
type Config struct {
	// DatabasePath is the DuckDB database file.
	DatabasePath string

	// SQLRoot is the directory containing one subdirectory per layer.
	SQLRoot string

	// BaseDir anchors relative source file paths declared in layer
	// metadata. Empty means the process working directory.
	BaseDir string

	// Layers lists layer names in execution order.
	Layers []string

	// Extensions lists engine extensions loaded on every connection.
	Extensions []string

	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger

	// Out receives human-readable output such as the dry-run plan
	// (os.Stdout if nil).
	Out io.Writer

	// Connect overrides how database connections are opened. Used by tests;
	// defaults to a per-module DuckDB connection at DatabasePath.
	Connect ConnectFunc
}

// DefaultLayers is the standard medallion layer ordering.
var DefaultLayers = []string{"bronze", "silver", "gold"}

// RunOptions control a layer execution.
type RunOptions struct {
	// DryRun renders the execution plan without opening a database
	// connection or executing any SQL.
	DryRun bool

	// Validate checks declared source files exist before executing the
	// bronze layer.
	Validate bool
}

// Orchestrator composes discovery, dependency resolution, source validation
// and execution for the layered SQL transformations.
type Orchestrator struct {
	cfg     Config
	logger  *slog.Logger
	out     io.Writer
	connect ConnectFunc

	// Discovery snapshot: qualified name -> module, plus insertion order.
	// Fully replaced on every DiscoverModules call.
	modules    map[string]*Module
	order      []string
	discovered bool
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) *Orchestrator {
	if len(cfg.Layers) == 0 {
		cfg.Layers = DefaultLayers
	}

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
		connect = func(ctx context.Context) (adapter.Adapter, error) {
			if cfg.DatabasePath != ":memory:" {
				if _, err := os.Stat(cfg.DatabasePath); err != nil {
					return nil, fmt.Errorf("database not found: %s", cfg.DatabasePath)
				}
			}
			db, err := adapter.New(adapter.Config{Type: "duckdb"}, logger)
			if err != nil {
				return nil, err
			}
			if err := db.Connect(ctx, adapter.Config{
				Path:       cfg.DatabasePath,
				Extensions: cfg.Extensions,
			}); err != nil {
				return nil, err
			}
			return db, nil
		}
	}

	return &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		connect: connect,
	}
}

// Modules returns the current discovery snapshot keyed by qualified name.
func (o *Orchestrator) Modules() map[string]*Module {
	return o.modules
}

// ExecuteLayer resolves and executes all enabled modules of one layer.
// Discovery runs automatically if it has not been performed yet.
func (o *Orchestrator) ExecuteLayer(ctx context.Context, layer string, opts RunOptions) error {
	if !o.discovered {
		if _, err := o.DiscoverModules(); err != nil {
			return err
		}
	}

	if !o.validLayer(layer) {
		return &InvalidLayerError{Layer: layer, Valid: o.cfg.Layers}
	}

	layerModules := o.layerModules(layer)
	if len(layerModules) == 0 {
		o.logger.Warn("no enabled modules found for layer", "layer", layer)
		return nil
	}

	sorted, err := o.sortByDependencies(layer, layerModules)
	if err != nil {
		return err
	}

	if opts.Validate && layer == "bronze" {
		if err := o.ValidateSources(sorted); err != nil {
			return err
		}
	}

	if opts.DryRun {
		o.previewExecution(sorted)
		return nil
	}
	return o.executeModules(ctx, sorted)
}

// ExecuteAll executes every configured layer in declared order. A failure in
// any layer aborts the remaining layers, so a later layer never starts until
// the entire earlier layer has executed successfully.
func (o *Orchestrator) ExecuteAll(ctx context.Context, opts RunOptions) error {
	if !o.discovered {
		if _, err := o.DiscoverModules(); err != nil {
			return err
		}
	}

	for _, layer := range o.cfg.Layers {
		fmt.Fprintf(o.out, "=== %s layer ===\n", layer)
		if err := o.ExecuteLayer(ctx, layer, opts); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) validLayer(layer string) bool {
	for _, l := range o.cfg.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

// layerModules returns the enabled modules of one layer in discovery order.
func (o *Orchestrator) layerModules(layer string) []*Module {
	var modules []*Module
	for _, name := range o.order {
		m := o.modules[name]
		if m.Layer == layer && m.Enabled {
			modules = append(modules, m)
		}
	}
	return modules
}
