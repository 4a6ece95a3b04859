package transform

import (
	"os"
	"path/filepath"
)

// ValidateSources checks that every source file declared by the given
// modules exists on disk. Relative paths are interpreted against the
// configured BaseDir (the project root), matching how they are written in
// the layer metadata.
//
// All missing files across all modules are collected before failing, so the
// returned MissingSourceFilesError presents the complete remediation list.
// The contract is layer-agnostic; by convention only the bronze layer is
// validated, since later layers consume already-materialized tables.
func (o *Orchestrator) ValidateSources(modules []*Module) error {
	var missing []MissingSource

	for _, m := range modules {
		for _, sourceFile := range m.SourceFiles {
			path := sourceFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(o.cfg.BaseDir, path)
			}
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, MissingSource{Module: m.Name, Path: sourceFile})
			}
		}
	}

	if len(missing) > 0 {
		for _, ms := range missing {
			o.logger.Error("missing source file", "module", ms.Module, "path", ms.Path)
		}
		return &MissingSourceFilesError{Missing: missing}
	}

	o.logger.Info("validation passed: all source files present", "modules", len(modules))
	return nil
}
