package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverModules scans each configured layer directory for SQL files,
// merges in the layer's metadata file, and rebuilds the module snapshot.
// Re-invocation fully replaces the previous snapshot.
//
// Returns a ConfigurationError if the SQL root itself does not exist. A
// missing layer subdirectory is skipped silently; a missing or malformed
// metadata file degrades to defaults with a warning.
func (o *Orchestrator) DiscoverModules() (map[string]*Module, error) {
	if _, err := os.Stat(o.cfg.SQLRoot); err != nil {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("SQL root directory not found: %s", o.cfg.SQLRoot),
		}
	}

	modules := make(map[string]*Module)
	var order []string

	for _, layer := range o.cfg.Layers {
		layerPath := filepath.Join(o.cfg.SQLRoot, layer)

		entries, err := os.ReadDir(layerPath)
		if err != nil {
			if os.IsNotExist(err) {
				o.logger.Debug("layer directory not found, skipping", "layer", layer, "path", layerPath)
				continue
			}
			return nil, fmt.Errorf("failed to read layer directory %s: %w", layerPath, err)
		}

		metadata, err := loadLayerMetadata(filepath.Join(layerPath, MetadataFileName))
		if err != nil {
			o.logger.Warn("ignoring layer metadata", "layer", layer, "error", err)
		}

		// os.ReadDir returns entries sorted by filename, which fixes the
		// discovery insertion order the resolver's tie-break relies on.
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
				continue
			}

			name := strings.TrimSuffix(entry.Name(), ".sql")
			module := &Module{
				Name:     name,
				Layer:    layer,
				FilePath: filepath.Join(layerPath, entry.Name()),
				Enabled:  true,
			}
			if meta, ok := metadata[name]; ok {
				meta.apply(module)
			}

			qualified := module.QualifiedName()
			modules[qualified] = module
			order = append(order, qualified)
			o.logger.Debug("discovered module", "module", qualified, "enabled", module.Enabled)
		}
	}

	o.modules = modules
	o.order = order
	o.discovered = true
	o.logger.Info("discovered modules", "count", len(modules), "layers", len(o.cfg.Layers))

	return modules, nil
}
