package store

import (
	"context"
	"sync"

	"github.com/atendify/flowengine/internal/models"
)

// InMemoryStore keeps conversation state and history in process memory. Used
// by tests and development runs without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	states  map[string]models.ConversationState
	history []models.ConversationHistory
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]models.ConversationState)}
}

// LoadState returns the state for the identity, or nil when absent.
func (s *InMemoryStore) LoadState(_ context.Context, id models.Identity) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id.Key()]
	if !ok {
		return nil, nil
	}
	// Copy so callers never alias the stored map.
	state.Variables = copyMap(state.Variables)
	return &state, nil
}

// SaveState inserts or replaces the state row.
func (s *InMemoryStore) SaveState(_ context.Context, state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Variables = copyMap(state.Variables)
	s.states[state.Identity.Key()] = state
	return nil
}

// DeleteState removes the state row.
func (s *InMemoryStore) DeleteState(_ context.Context, id models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id.Key())
	return nil
}

// AppendHistory appends one terminal record.
func (s *InMemoryStore) AppendHistory(_ context.Context, record models.ConversationHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, record)
	return nil
}

// ListHistory returns the account's records, newest first.
func (s *InMemoryStore) ListHistory(_ context.Context, accountID string) ([]models.ConversationHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConversationHistory
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Identity.AccountID == accountID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
