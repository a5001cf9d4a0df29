// Package flow implements the conversational flow execution engine: a
// per-conversation state machine that interprets an operator-authored graph
// to drive an automated chat session, persisting progress between inbound
// messages.
package flow

import (
	"context"
	"time"

	"github.com/atendify/flowengine/internal/models"
)

// StateStore persists conversation resting state between inbound messages.
// Implementations must replace the whole row on save (upsert); partial field
// updates are forbidden to avoid lost-update races.
type StateStore interface {
	// LoadState returns the state for the identity, or (nil, nil) when no
	// conversation is in progress.
	LoadState(ctx context.Context, id models.Identity) (*models.ConversationState, error)

	// SaveState inserts or replaces the state row keyed by its identity.
	SaveState(ctx context.Context, state models.ConversationState) error

	// DeleteState removes the state row. Deleting an absent row is not an
	// error.
	DeleteState(ctx context.Context, id models.Identity) error
}

// HistoryRecorder appends the terminal audit record of a conversation.
// Best-effort from the engine's perspective: a failure here never rolls back
// the state deletion already performed.
type HistoryRecorder interface {
	AppendHistory(ctx context.Context, record models.ConversationHistory) error
}

// HandoffKind distinguishes the two hand-off targets.
type HandoffKind string

const (
	// HandoffTeam routes the conversation to a human team queue.
	HandoffTeam HandoffKind = "team"
	// HandoffAgent routes the conversation to a specific agent.
	HandoffAgent HandoffKind = "agent"
)

// HandoffNotifier informs the surrounding platform that a conversation was
// handed to a human. Fire-and-forget: failures are logged, never retried by
// the engine.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, kind HandoffKind, targetID string, state models.ConversationState) error
}

// Clock supplies the current time. Injected so business-hours gating is
// testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
