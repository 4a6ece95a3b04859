// Package dag provides directed acyclic graph operations for transformation
// module dependencies. It supports deterministic topological sorting and
// cycle detection.
package dag

import "fmt"

// CycleError is returned when a graph cannot be fully ordered.
// Remaining holds the nodes left unresolved after Kahn's algorithm drains,
// i.e. the nodes participating in (or downstream of) a cycle.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among nodes: %v", e.Remaining)
}

// Graph is a directed graph keyed by string IDs. Node and edge insertion
// order is preserved so that topological sorts are reproducible across runs
// for identical inputs.
type Graph struct {
	order    []string // node IDs in insertion order
	nodes    map[string]bool
	children map[string][]string // dependency -> dependents
	indegree map[string]int
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]bool),
		children: make(map[string][]string),
		indegree: make(map[string]int),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if g.nodes[id] {
		return
	}
	g.nodes[id] = true
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from a dependency to its dependent
// (child depends on parent). Both nodes must already exist. A self-edge is
// recorded like any other: it forms a one-node cycle that TopologicalSort
// reports via CycleError.
func (g *Graph) AddEdge(parentID, childID string) error {
	if !g.nodes[parentID] {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if !g.nodes[childID] {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	for _, existing := range g.children[parentID] {
		if existing == childID {
			return nil
		}
	}
	g.children[parentID] = append(g.children[parentID], childID)
	g.indegree[childID]++
	return nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, c := range g.children {
		count += len(c)
	}
	return count
}

// Children returns the dependents of a node in edge insertion order.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// TopologicalSort returns node IDs ordered so that every node appears after
// all of its dependencies, using Kahn's algorithm. Ties are broken by node
// insertion order: of the nodes that are simultaneously ready, the one added
// to the graph first is emitted first.
//
// Returns a *CycleError if the graph cannot be fully ordered.
func (g *Graph) TopologicalSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = g.indegree[id]
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, child := range g.children[current] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		emitted := make(map[string]bool, len(sorted))
		for _, id := range sorted {
			emitted[id] = true
		}
		var remaining []string
		for _, id := range g.order {
			if !emitted[id] {
				remaining = append(remaining, id)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}

	return sorted, nil
}
