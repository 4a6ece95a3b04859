package transform

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// previewExecution renders the execution plan without touching the database.
// No connection is opened and no SQL runs in this mode.
func (o *Orchestrator) previewExecution(modules []*Module) {
	fmt.Fprintf(o.out, "\nExecution plan (%d modules):\n", len(modules))

	t := table.NewWriter()
	t.SetOutputMirror(o.out)
	t.AppendHeader(table.Row{"#", "Module", "Description", "Depends On", "Notes"})

	for i, m := range modules {
		notes := ""
		if m.RequiresExternalConnectivity {
			notes = "requires external connectivity"
		}
		t.AppendRow(table.Row{
			i + 1,
			m.QualifiedName(),
			m.Description,
			strings.Join(m.DependsOn, ", "),
			notes,
		})
	}

	t.Render()
}

// executeModules runs each module's SQL in order against the database.
//
// A fresh connection is opened per module rather than held across the run,
// to avoid long-lived locks; engine extensions are re-loaded each time since
// they do not persist across connections. Execution halts on the first
// failure: remaining modules never run, and the returned ModuleExecutionError
// names the failed module and the count that completed before it.
func (o *Orchestrator) executeModules(ctx context.Context, modules []*Module) error {
	for i, m := range modules {
		if err := o.executeModule(ctx, m); err != nil {
			o.logger.Error("module failed", "module", m.QualifiedName(), "completed", i, "error", err)
			return &ModuleExecutionError{Module: m.QualifiedName(), Completed: i, Err: err}
		}
		o.logger.Info("module executed", "module", m.QualifiedName())
	}

	fmt.Fprintf(o.out, "Executed %d modules\n", len(modules))
	return nil
}

// executeModule runs one module's SQL text as a single batch on its own
// connection. Each module's SQL is responsible for its own atomicity (e.g.
// CREATE OR REPLACE); there is no transactional wrapping across modules.
func (o *Orchestrator) executeModule(ctx context.Context, m *Module) error {
	sqlContent, err := os.ReadFile(m.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read SQL file: %w", err)
	}

	db, err := o.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Exec(ctx, string(sqlContent))
}
