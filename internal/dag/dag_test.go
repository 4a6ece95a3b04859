package dag

import (
	"errors"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	// b depends on a
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	// c depends on b
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_TopologicalSort_SelfEdgeIsCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")

	if err := g.AddEdge("a", "a"); err != nil {
		t.Fatalf("failed to add self-edge: %v", err)
	}

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if len(cycleErr.Remaining) != 1 || cycleErr.Remaining[0] != "a" {
		t.Errorf("expected [a] unresolved, got %v", cycleErr.Remaining)
	}
}

func TestGraph_AddEdge_Duplicate(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")

	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("duplicate edge should be a no-op, got: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge after duplicate add, got %d", g.EdgeCount())
	}
}

func TestGraph_TopologicalSort_Simple(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	// b depends on a, c depends on b
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if sorted[i] != id {
			t.Errorf("position %d: expected %q, got %q", i, id, sorted[i])
		}
	}
}

func TestGraph_TopologicalSort_DependencyBeforeDependent(t *testing.T) {
	g := NewGraph()
	g.AddNode("load_b")
	g.AddNode("load_a")
	g.AddNode("load_c")

	// load_b depends on load_a, load_c depends on load_a
	g.AddEdge("load_a", "load_b")
	g.AddEdge("load_a", "load_c")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}

	pos := make(map[string]int, len(sorted))
	for i, id := range sorted {
		pos[id] = i
	}
	if pos["load_a"] > pos["load_b"] {
		t.Error("load_a must come before load_b")
	}
	if pos["load_a"] > pos["load_c"] {
		t.Error("load_a must come before load_c")
	}
}

func TestGraph_TopologicalSort_InsertionOrderTieBreak(t *testing.T) {
	g := NewGraph()
	// All independent; order must follow insertion, not lexicographic.
	g.AddNode("zeta")
	g.AddNode("alpha")
	g.AddNode("mid")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}

	want := []string{"zeta", "alpha", "mid"}
	for i, id := range want {
		if sorted[i] != id {
			t.Errorf("position %d: expected %q, got %q", i, id, sorted[i])
		}
	}
}

func TestGraph_TopologicalSort_Deterministic(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		for _, id := range []string{"d", "b", "a", "c", "e"} {
			g.AddNode(id)
		}
		g.AddEdge("b", "d")
		g.AddEdge("a", "c")
		return g
	}

	first, err := build().TopologicalSort()
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := build().TopologicalSort()
		if err != nil {
			t.Fatalf("sort failed: %v", err)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d: ordering differs at %d: %q vs %q", i, j, first[j], again[j])
			}
		}
	}
}

func TestGraph_TopologicalSort_Cycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("x")
	g.AddNode("y")

	g.AddEdge("x", "y")
	g.AddEdge("y", "x")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Remaining) != 2 {
		t.Errorf("expected 2 unresolved nodes, got %v", cycleErr.Remaining)
	}
}

func TestGraph_TopologicalSort_PartialCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("ok")
	g.AddNode("x")
	g.AddNode("y")

	g.AddEdge("x", "y")
	g.AddEdge("y", "x")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	// Only the cyclic members should be reported as unresolved.
	for _, id := range cycleErr.Remaining {
		if id == "ok" {
			t.Error("acyclic node reported as part of cycle")
		}
	}
}
