package flow

import (
	"fmt"
	"log/slog"

	"github.com/atendify/flowengine/internal/models"
)

// Graph is the indexed, read-only form of a FlowDefinition. It is built once
// per invocation and performs no I/O.
type Graph struct {
	flowID   string
	nodes    map[string]models.Node
	startID  string
	outgoing map[string][]models.Edge
}

// NewGraph indexes and validates a flow definition. Structural problems
// (no start node, duplicate ids, malformed node config) are reported here so
// no conversation runs against a broken graph.
func NewGraph(def *models.FlowDefinition) (*Graph, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", models.ErrInvalidFlow)
	}
	if err := def.ValidateStructure(); err != nil {
		slog.Error("Graph validation failed", "flowID", def.ID, "error", err)
		return nil, err
	}

	g := &Graph{
		flowID:   def.ID,
		nodes:    make(map[string]models.Node, len(def.Nodes)),
		outgoing: make(map[string][]models.Edge, len(def.Nodes)),
	}
	for _, n := range def.Nodes {
		g.nodes[n.ID] = n
		if n.Kind == models.NodeKindStart {
			g.startID = n.ID
		}
	}
	for _, e := range def.Edges {
		g.outgoing[e.SourceNodeID] = append(g.outgoing[e.SourceNodeID], e)
	}
	return g, nil
}

// FlowID returns the id of the underlying definition.
func (g *Graph) FlowID() string { return g.flowID }

// FindNode returns the node with the given id. A miss is a caller-visible
// graph error, not a panic: it means the persisted state references a node
// that no longer exists in the current definition.
func (g *Graph) FindNode(id string) (models.Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return models.Node{}, fmt.Errorf("%w: flow %s has no node %s", models.ErrNodeNotFound, g.flowID, id)
	}
	return n, nil
}

// StartNode returns the flow's unique start node.
func (g *Graph) StartNode() (models.Node, error) {
	if g.startID == "" {
		return models.Node{}, fmt.Errorf("%w: flow %s", models.ErrNoStartNode, g.flowID)
	}
	return g.nodes[g.startID], nil
}

// OutgoingEdges returns the edges leaving nodeID in definition order. The
// returned slice must not be mutated.
func (g *Graph) OutgoingEdges(nodeID string) []models.Edge {
	return g.outgoing[nodeID]
}
