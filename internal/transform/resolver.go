package transform

import (
	"errors"

	"github.com/mca-data/epclake/internal/dag"
)

// sortByDependencies orders the given modules so that every module appears
// after all of its same-layer dependencies.
//
// The graph is built only among the modules present in the input set: a
// dependency whose qualified name falls outside the set (a cross-layer
// dependency) is treated as already satisfied and omitted, trusting the
// caller to have executed earlier layers first. Ties are broken by discovery
// insertion order, so the ordering is deterministic for a fixed snapshot.
func (o *Orchestrator) sortByDependencies(layer string, modules []*Module) ([]*Module, error) {
	byName := make(map[string]*Module, len(modules))
	graph := dag.NewGraph()

	for _, m := range modules {
		byName[m.QualifiedName()] = m
		graph.AddNode(m.QualifiedName())
	}

	for _, m := range modules {
		for _, dep := range m.Dependencies() {
			if _, inSet := byName[dep]; !inSet {
				continue
			}
			if err := graph.AddEdge(dep, m.QualifiedName()); err != nil {
				return nil, err
			}
		}
	}

	sorted, err := graph.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CyclicDependencyError{Layer: layer, Members: cycleErr.Remaining}
		}
		return nil, err
	}

	ordered := make([]*Module, 0, len(sorted))
	for _, name := range sorted {
		ordered = append(ordered, byName[name])
	}
	return ordered, nil
}
