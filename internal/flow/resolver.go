package flow

import (
	"log/slog"

	"github.com/atendify/flowengine/internal/metric"
	"github.com/atendify/flowengine/internal/models"
)

// ResolveEdge finds the transition out of nodeID selected by handle.
//
// With a non-empty handle the first edge whose source handle matches exactly
// wins. When nothing matches, resolution falls back to the first outgoing
// edge regardless of handle: operators sometimes forget to wire a specific
// handle, and dropping the conversation there would be worse than taking the
// obvious path. The fallback is logged and counted because it signals a
// misconfigured flow.
//
// With an empty handle only the unconditional edge (empty source handle)
// matches.
//
// A nil result means the node has no usable outgoing edge: the runner treats
// that as a dangling branch where the flow ends silently.
func (g *Graph) ResolveEdge(nodeID, handle string, metrics *metric.Metrics) *models.Edge {
	edges := g.outgoing[nodeID]
	if len(edges) == 0 {
		return nil
	}

	if handle == "" {
		for i := range edges {
			if edges[i].SourceHandle == "" {
				return &edges[i]
			}
		}
		return nil
	}

	for i := range edges {
		if edges[i].SourceHandle == handle {
			return &edges[i]
		}
	}

	// Graph-authoring leniency: no edge carries the requested handle, take
	// the first one.
	slog.Warn("ResolveEdge fell back to first outgoing edge",
		"flowID", g.flowID, "nodeID", nodeID, "handle", handle, "edgeID", edges[0].ID)
	if metrics != nil {
		metrics.EdgeFallbacks.WithLabelValues(g.flowID).Inc()
	}
	return &edges[0]
}
