package flow

import (
	"testing"

	"github.com/atendify/flowengine/internal/models"
)

func branchingGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(&models.FlowDefinition{
		ID: "flow-branch",
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart, Config: map[string]any{"text": "Oi"}},
			{ID: "menu", Kind: models.NodeKindOptions, Config: map[string]any{
				"prompt": "Escolha:", "options": []any{"A", "B"},
			}},
			{ID: "a", Kind: models.NodeKindMessage, Config: map[string]any{"text": "A!"}},
			{ID: "b", Kind: models.NodeKindMessage, Config: map[string]any{"text": "B!"}},
			{ID: "end", Kind: models.NodeKindEnd},
		},
		Edges: []models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "menu"},
			{ID: "e2", SourceNodeID: "menu", TargetNodeID: "a", SourceHandle: "opcao_0"},
			{ID: "e3", SourceNodeID: "menu", TargetNodeID: "b", SourceHandle: "opcao_1"},
			{ID: "e4", SourceNodeID: "a", TargetNodeID: "end"},
		},
	})
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return g
}

func TestResolveEdgeExactHandle(t *testing.T) {
	g := branchingGraph(t)

	edge := g.ResolveEdge("menu", "opcao_1", nil)
	if edge == nil {
		t.Fatal("expected edge for opcao_1")
	}
	if edge.TargetNodeID != "b" {
		t.Errorf("opcao_1 resolved to %q, want b", edge.TargetNodeID)
	}
}

func TestResolveEdgeUnconditional(t *testing.T) {
	g := branchingGraph(t)

	edge := g.ResolveEdge("start", "", nil)
	if edge == nil {
		t.Fatal("expected unconditional edge from start")
	}
	if edge.TargetNodeID != "menu" {
		t.Errorf("unconditional edge resolved to %q, want menu", edge.TargetNodeID)
	}
}

func TestResolveEdgeFallbackToFirst(t *testing.T) {
	// No edge carries the requested handle: resolution takes the first
	// outgoing edge instead of dropping the conversation.
	g := branchingGraph(t)

	edge := g.ResolveEdge("menu", "opcao_9", nil)
	if edge == nil {
		t.Fatal("expected fallback edge")
	}
	if edge.ID != "e2" {
		t.Errorf("fallback resolved to edge %q, want e2 (first outgoing)", edge.ID)
	}
}

func TestResolveEdgeNoEdges(t *testing.T) {
	g := branchingGraph(t)

	if edge := g.ResolveEdge("end", "", nil); edge != nil {
		t.Errorf("expected nil for node without edges, got %+v", edge)
	}
	if edge := g.ResolveEdge("end", "anything", nil); edge != nil {
		t.Errorf("expected nil for node without edges, got %+v", edge)
	}
}

func TestResolveEdgeEmptyHandleStrict(t *testing.T) {
	// An empty handle only matches the unconditional edge; it never falls
	// back to a handled one.
	g := branchingGraph(t)

	if edge := g.ResolveEdge("menu", "", nil); edge != nil {
		t.Errorf("expected nil when no unconditional edge exists, got %+v", edge)
	}
}
