// Package store provides storage backends for conversation state and history.
//
// Three durable backends implement the same contract — SQLite, PostgreSQL and
// Redis — plus an in-memory store for tests and development runs. Every
// backend supports atomic whole-row replacement of conversation state, which
// the runner relies on to avoid lost updates.
package store

import (
	"context"
	"strings"

	"github.com/atendify/flowengine/internal/models"
)

// Store is the full persistence contract: conversation state rows, the
// append-only history log, and lifecycle management.
type Store interface {
	// LoadState returns the state for the identity, or (nil, nil) when
	// absent.
	LoadState(ctx context.Context, id models.Identity) (*models.ConversationState, error)
	// SaveState inserts or replaces the state row keyed by the identity.
	SaveState(ctx context.Context, state models.ConversationState) error
	// DeleteState removes the state row; deleting an absent row succeeds.
	DeleteState(ctx context.Context, id models.Identity) error

	// AppendHistory appends one terminal audit record.
	AppendHistory(ctx context.Context, record models.ConversationHistory) error
	// ListHistory returns the account's terminal records, newest first.
	ListHistory(ctx context.Context, accountID string) ([]models.ConversationHistory, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration shared by store constructors.
type Opts struct {
	// DSN is the backend address: a SQLite file path, a postgres:// URL or
	// a redis:// URL.
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithRedisDSN configures a Redis URL.
func WithRedisDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType sniffs the backend type from a DSN: "postgres" for
// postgres:// URLs or key=value connection strings, "redis" for redis://
// URLs, "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	default:
		return "sqlite"
	}
}
