package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()

	if err := g.AddNode("a", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddNode("b", []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Size())
	}

	node := g.Node("b")
	if node == nil {
		t.Fatal("node b should exist")
	}
	if len(node.Parents) != 1 || node.Parents[0] != "a" {
		t.Errorf("node b should have parent a, got %v", node.Parents)
	}

	parent := g.Node("a")
	if len(parent.Children) != 1 || parent.Children[0] != "b" {
		t.Errorf("node a should have child b, got %v", parent.Children)
	}
}

func TestGraph_AddNode_EmptyName(t *testing.T) {
	g := NewGraph()

	err := g.AddNode("", nil)
	if !errors.Is(err, ErrEmptyStepName) {
		t.Errorf("expected ErrEmptyStepName, got %v", err)
	}
}

func TestGraph_AddNode_Duplicate(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode("a", nil)

	err := g.AddNode("a", nil)
	if !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("expected ErrDuplicateStep, got %v", err)
	}
	if g.Size() != 1 {
		t.Errorf("graph should be unchanged, got %d nodes", g.Size())
	}
}

func TestGraph_AddNode_UnknownParent(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode("a", nil)

	err := g.AddNode("b", []string{"a", "missing"})
	if !errors.Is(err, ErrUnknownParent) {
		t.Errorf("expected ErrUnknownParent, got %v", err)
	}

	// Atomicity: failed AddNode must not leave partial edges behind
	if g.Size() != 1 {
		t.Errorf("graph should be unchanged, got %d nodes", g.Size())
	}
	if len(g.Node("a").Children) != 0 {
		t.Error("node a should have no children after failed add")
	}
}

func TestGraph_AddNode_SelfCycle(t *testing.T) {
	g := NewGraph()

	err := g.AddNode("a", []string{"a"})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
	if g.Size() != 0 {
		t.Errorf("graph should be unchanged, got %d nodes", g.Size())
	}
}

func TestGraph_AddNode_DefinitionErrorContext(t *testing.T) {
	g := NewGraph()

	err := g.AddNode("b", []string{"missing"})

	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %T", err)
	}
	if defErr.Step != "b" {
		t.Errorf("expected step b in error, got %s", defErr.Step)
	}
	if defErr.Field != "parents" {
		t.Errorf("expected field parents in error, got %s", defErr.Field)
	}
}

func TestGraph_Ready(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode("p1", nil)
	_ = g.AddNode("p2", nil)
	_ = g.AddNode("t1", []string{"p1"})
	_ = g.AddNode("pick", []string{"t1", "p2"})

	statuses := map[string]domain.StepStatus{
		"p1":   domain.StepStatusPending,
		"p2":   domain.StepStatusPending,
		"t1":   domain.StepStatusPending,
		"pick": domain.StepStatusPending,
	}

	// Roots are ready immediately
	ready := g.Ready(statuses)
	if len(ready) != 2 || ready[0] != "p1" || ready[1] != "p2" {
		t.Errorf("expected [p1 p2], got %v", ready)
	}

	// Dispatched steps are not ready again
	statuses["p1"] = domain.StepStatusDispatched
	ready = g.Ready(statuses)
	if len(ready) != 1 || ready[0] != "p2" {
		t.Errorf("expected [p2], got %v", ready)
	}

	// t1 becomes ready only when p1 completes
	statuses["p1"] = domain.StepStatusCompleted
	statuses["p2"] = domain.StepStatusCompleted
	ready = g.Ready(statuses)
	if len(ready) != 1 || ready[0] != "t1" {
		t.Errorf("expected [t1], got %v", ready)
	}

	// pick waits for both parents
	statuses["t1"] = domain.StepStatusCompleted
	ready = g.Ready(statuses)
	if len(ready) != 1 || ready[0] != "pick" {
		t.Errorf("expected [pick], got %v", ready)
	}

	// A failed parent never unblocks descendants
	statuses["t1"] = domain.StepStatusFailed
	ready = g.Ready(statuses)
	if len(ready) != 0 {
		t.Errorf("expected no ready steps, got %v", ready)
	}
}

func TestGraph_Ready_StableOrder(t *testing.T) {
	g := NewGraph()
	names := []string{"e", "a", "c", "b", "d"}
	for _, name := range names {
		_ = g.AddNode(name, nil)
	}

	statuses := make(map[string]domain.StepStatus, len(names))
	for _, name := range names {
		statuses[name] = domain.StepStatusPending
	}

	first := g.Ready(statuses)
	for i := 0; i < 10; i++ {
		again := g.Ready(statuses)
		if len(again) != len(first) {
			t.Fatalf("ready set size changed: %v vs %v", first, again)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("ready order not stable: %v vs %v", first, again)
			}
		}
	}
}

func TestGraph_Descendants(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode("p1", nil)
	_ = g.AddNode("p2", nil)
	_ = g.AddNode("t1", []string{"p1"})
	_ = g.AddNode("t2", []string{"p2"})
	_ = g.AddNode("pick", []string{"t1", "t2"})

	desc := g.Descendants("p1")
	got := make(map[string]bool, len(desc))
	for _, d := range desc {
		got[d] = true
	}

	if len(desc) != 2 || !got["t1"] || !got["pick"] {
		t.Errorf("expected descendants of p1 to be {t1, pick}, got %v", desc)
	}

	// Independent branch is untouched
	if got["t2"] || got["p2"] {
		t.Errorf("t2/p2 should not be descendants of p1, got %v", desc)
	}

	if d := g.Descendants("pick"); len(d) != 0 {
		t.Errorf("pick should have no descendants, got %v", d)
	}
}

func TestGraph_Names(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode("b", nil)
	_ = g.AddNode("a", []string{"b"})

	names := g.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("expected insertion order [b a], got %v", names)
	}
}
