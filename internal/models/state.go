// Package models defines the durable conversation records for flowengine.
package models

import "time"

// Identity is the durable key for one conversation's progress: which account,
// which contact, which flow.
type Identity struct {
	AccountID string `json:"account_id"`
	OwnerID   string `json:"owner_id"`
	FlowID    string `json:"flow_id"`
}

// Key returns the canonical string form used for store keys and per-identity
// serialization.
func (id Identity) Key() string {
	return id.AccountID + ":" + id.OwnerID + ":" + id.FlowID
}

// Validate checks that every component of the tuple is present.
func (id Identity) Validate() error {
	if id.AccountID == "" || id.OwnerID == "" || id.FlowID == "" {
		return ErrIncompleteIdentity
	}
	return nil
}

// ConversationState is the resting position of one conversation between
// inbound messages. At most one row exists per identity; it is created on the
// first inbound message, rewritten whole on every non-terminal turn and
// deleted when the flow terminates.
type ConversationState struct {
	Identity      Identity          `json:"identity"`
	CurrentNodeID string            `json:"current_node_id"`
	Variables     map[string]string `json:"variables,omitempty"`
	LastMessage   string            `json:"last_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// HistoryStatus classifies how a conversation terminated.
type HistoryStatus string

const (
	// HistoryStatusCompleted marks a conversation that reached an end node.
	HistoryStatusCompleted HistoryStatus = "completed"
	// HistoryStatusTransferredTeam marks a hand-off to a human team.
	HistoryStatusTransferredTeam HistoryStatus = "transferred_team"
	// HistoryStatusTransferredAgent marks a hand-off to a specific agent.
	HistoryStatusTransferredAgent HistoryStatus = "transferred_agent"
)

// ConversationHistory is the append-only audit record written once per
// terminal transition. It is never updated or deleted.
type ConversationHistory struct {
	ID          string            `json:"id"`
	Identity    Identity          `json:"identity"`
	FinalNodeID string            `json:"final_node_id"`
	Variables   map[string]string `json:"variables,omitempty"`
	Status      HistoryStatus     `json:"status"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
