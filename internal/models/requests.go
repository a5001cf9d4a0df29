// Package models defines the request payloads accepted by the HTTP surface.
package models

// StepRequest is the payload for processing one inbound message. The
// conversation identity is (AccountID, OwnerID, Flow.ID).
type StepRequest struct {
	Flow      FlowDefinition `json:"flow"`
	AccountID string         `json:"account_id"`
	OwnerID   string         `json:"owner_id"`
	Message   string         `json:"message"`
}

// Identity builds the durable conversation key for the request.
func (r StepRequest) Identity() Identity {
	return Identity{AccountID: r.AccountID, OwnerID: r.OwnerID, FlowID: r.Flow.ID}
}

// StepReply carries the ordered outbound segments produced by one turn. The
// transport caller sends the first immediately and later ones after a short
// simulated-typing delay.
type StepReply struct {
	Segments []string `json:"segments"`
}
