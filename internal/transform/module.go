// Package transform orchestrates layered SQL transformations against the
// analytical database. It discovers transformation modules from the
// filesystem, merges declarative layer metadata, resolves dependency order,
// and executes modules sequentially with dry-run and source validation
// support.
package transform

import "strings"

// Module describes one SQL transformation unit within a layer.
// Modules are constructed once per discovery pass and not mutated afterwards.
type Module struct {
	// Name is the filename stem, unique within its layer.
	Name string

	// Layer is the layer this module belongs to (bronze, silver, gold).
	Layer string

	// FilePath is the location of the executable SQL text.
	FilePath string

	// DependsOn lists dependency names as declared in the layer metadata:
	// same-layer names unqualified, cross-layer names as "layer/name".
	DependsOn []string

	// Description is optional human-readable text from the layer metadata.
	Description string

	// Enabled marks whether the module participates in execution.
	// Disabled modules remain discoverable.
	Enabled bool

	// RequiresExternalConnectivity marks modules whose SQL reaches outside
	// the local database (e.g. PostGIS federation). Surfaced as a warning in
	// the execution plan; connectivity itself is probed by the doctor.
	RequiresExternalConnectivity bool

	// SourceFiles lists data files the module's SQL reads. Checked for
	// existence by the source validator before bronze execution.
	SourceFiles []string
}

// QualifiedName returns the globally unique "layer/name" identifier.
func (m *Module) QualifiedName() string {
	return m.Layer + "/" + m.Name
}

// Dependencies returns the declared dependencies fully qualified: names
// without a layer prefix are assumed to live in this module's layer. The
// resolver then deals only in qualified keys.
func (m *Module) Dependencies() []string {
	deps := make([]string, 0, len(m.DependsOn))
	for _, dep := range m.DependsOn {
		if strings.Contains(dep, "/") {
			deps = append(deps, dep)
		} else {
			deps = append(deps, m.Layer+"/"+dep)
		}
	}
	return deps
}
