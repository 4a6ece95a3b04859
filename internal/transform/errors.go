package transform

import (
	"fmt"
	"strings"
)

// ConfigurationError indicates the transformation configuration is unusable,
// e.g. the SQL root directory does not exist.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// InvalidLayerError is returned when a requested layer is not among the
// configured layers.
type InvalidLayerError struct {
	Layer string
	Valid []string
}

func (e *InvalidLayerError) Error() string {
	return fmt.Sprintf("invalid layer %q: must be one of %v", e.Layer, e.Valid)
}

// CyclicDependencyError is returned when a layer's dependency graph cannot
// be fully ordered. Members lists the modules left unresolved.
type CyclicDependencyError struct {
	Layer   string
	Members []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected in %s layer (unresolved: %s)",
		e.Layer, strings.Join(e.Members, ", "))
}

// MissingSource identifies one declared source file that was not found.
type MissingSource struct {
	Module string
	Path   string
}

// MissingSourceFilesError carries the complete list of missing source files
// across all validated modules, so the operator can fix everything in one
// pass.
type MissingSourceFilesError struct {
	Missing []MissingSource
}

func (e *MissingSourceFilesError) Error() string {
	return fmt.Sprintf("%d source file(s) missing", len(e.Missing))
}

// ModuleExecutionError is returned when the database engine fails while
// executing a module. Completed is the number of modules that ran
// successfully before the failure; everything after the failed module was
// never executed.
type ModuleExecutionError struct {
	Module    string
	Completed int
	Err       error
}

func (e *ModuleExecutionError) Error() string {
	return fmt.Sprintf("module execution failed: %s (after %d completed): %v",
		e.Module, e.Completed, e.Err)
}

func (e *ModuleExecutionError) Unwrap() error {
	return e.Err
}
