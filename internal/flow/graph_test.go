package flow

import (
	"errors"
	"testing"

	"github.com/atendify/flowengine/internal/models"
)

func minimalFlow() *models.FlowDefinition {
	return &models.FlowDefinition{
		ID: "flow-1",
		Nodes: []models.Node{
			{ID: "start", Kind: models.NodeKindStart, Config: map[string]any{"text": "Oi"}},
			{ID: "end", Kind: models.NodeKindEnd, Config: map[string]any{"text": "Tchau"}},
		},
		Edges: []models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "end"},
		},
	}
}

func TestNewGraphValid(t *testing.T) {
	g, err := NewGraph(minimalFlow())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if g.FlowID() != "flow-1" {
		t.Errorf("FlowID = %q, want flow-1", g.FlowID())
	}

	start, err := g.StartNode()
	if err != nil {
		t.Fatalf("StartNode failed: %v", err)
	}
	if start.ID != "start" {
		t.Errorf("StartNode = %q, want start", start.ID)
	}

	node, err := g.FindNode("end")
	if err != nil {
		t.Fatalf("FindNode failed: %v", err)
	}
	if node.Kind != models.NodeKindEnd {
		t.Errorf("FindNode(end).Kind = %q, want end", node.Kind)
	}
}

func TestNewGraphNilDefinition(t *testing.T) {
	_, err := NewGraph(nil)
	if !errors.Is(err, models.ErrInvalidFlow) {
		t.Errorf("expected ErrInvalidFlow, got %v", err)
	}
}

func TestNewGraphNoStartNode(t *testing.T) {
	def := minimalFlow()
	def.Nodes = def.Nodes[1:]
	_, err := NewGraph(def)
	if !errors.Is(err, models.ErrNoStartNode) {
		t.Errorf("expected ErrNoStartNode, got %v", err)
	}
}

func TestNewGraphMultipleStartNodes(t *testing.T) {
	def := minimalFlow()
	def.Nodes = append(def.Nodes, models.Node{ID: "start2", Kind: models.NodeKindStart})
	_, err := NewGraph(def)
	if !errors.Is(err, models.ErrInvalidFlow) {
		t.Errorf("expected ErrInvalidFlow for two start nodes, got %v", err)
	}
}

func TestNewGraphDuplicateNodeID(t *testing.T) {
	def := minimalFlow()
	def.Nodes = append(def.Nodes, models.Node{ID: "end", Kind: models.NodeKindMessage})
	_, err := NewGraph(def)
	if !errors.Is(err, models.ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}
}

func TestNewGraphMalformedConfig(t *testing.T) {
	def := minimalFlow()
	// options must be a list, not a scalar
	def.Nodes = append(def.Nodes, models.Node{
		ID:   "menu",
		Kind: models.NodeKindOptions,
		Config: map[string]any{
			"prompt":  "Escolha:",
			"options": map[string]any{"not": "a list"},
		},
	})
	_, err := NewGraph(def)
	if !errors.Is(err, models.ErrInvalidNodeConfig) {
		t.Errorf("expected ErrInvalidNodeConfig, got %v", err)
	}
}

func TestFindNodeMissing(t *testing.T) {
	g, err := NewGraph(minimalFlow())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	_, err = g.FindNode("ghost")
	if !errors.Is(err, models.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestOutgoingEdgesOrder(t *testing.T) {
	def := minimalFlow()
	def.Nodes = append(def.Nodes, models.Node{
		ID:   "menu",
		Kind: models.NodeKindOptions,
		Config: map[string]any{
			"prompt":  "Escolha:",
			"options": []any{"A", "B"},
		},
	})
	def.Edges = append(def.Edges,
		models.Edge{ID: "m1", SourceNodeID: "menu", TargetNodeID: "end", SourceHandle: "opcao_0"},
		models.Edge{ID: "m2", SourceNodeID: "menu", TargetNodeID: "end", SourceHandle: "opcao_1"},
	)

	g, err := NewGraph(def)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	edges := g.OutgoingEdges("menu")
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].ID != "m1" || edges[1].ID != "m2" {
		t.Errorf("edges not in definition order: %v", edges)
	}

	if got := g.OutgoingEdges("end"); len(got) != 0 {
		t.Errorf("expected no edges from end node, got %d", len(got))
	}
}
