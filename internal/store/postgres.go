// Package store provides storage backends for conversation state and history.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/atendify/flowengine/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversation state and history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL store from the configured DSN and
// runs migrations on open.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run PostgreSQL migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied")

	return &PostgresStore{db: db}, nil
}

// LoadState retrieves the conversation state for an identity.
func (s *PostgresStore) LoadState(ctx context.Context, id models.Identity) (*models.ConversationState, error) {
	query := `SELECT current_node_id, variables, last_message, created_at, updated_at
			  FROM conversation_states WHERE account_id = $1 AND owner_id = $2 AND flow_id = $3`

	state := models.ConversationState{Identity: id}
	var variablesJSON, lastMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID).Scan(
		&state.CurrentNodeID, &variablesJSON, &lastMessage, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadState not found", "identity", id.Key())
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadState failed", "error", err, "identity", id.Key())
		return nil, err
	}

	state.Variables = unmarshalMap(variablesJSON.String)
	state.LastMessage = lastMessage.String
	return &state, nil
}

// SaveState stores or replaces the conversation state row atomically.
func (s *PostgresStore) SaveState(ctx context.Context, state models.ConversationState) error {
	query := `
		INSERT INTO conversation_states
			(account_id, owner_id, flow_id, current_node_id, variables, last_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, owner_id, flow_id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id,
			variables       = EXCLUDED.variables,
			last_message    = EXCLUDED.last_message,
			updated_at      = EXCLUDED.updated_at`

	id := state.Identity
	_, err := s.db.ExecContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID,
		state.CurrentNodeID, marshalMap(state.Variables), state.LastMessage,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveState failed", "error", err, "identity", id.Key())
		return err
	}
	slog.Debug("PostgresStore SaveState succeeded", "identity", id.Key(), "node", state.CurrentNodeID)
	return nil
}

// DeleteState removes the conversation state row.
func (s *PostgresStore) DeleteState(ctx context.Context, id models.Identity) error {
	query := `DELETE FROM conversation_states WHERE account_id = $1 AND owner_id = $2 AND flow_id = $3`

	_, err := s.db.ExecContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID)
	if err != nil {
		slog.Error("PostgresStore DeleteState failed", "error", err, "identity", id.Key())
		return err
	}
	slog.Debug("PostgresStore DeleteState succeeded", "identity", id.Key())
	return nil
}

// AppendHistory inserts one terminal audit record.
func (s *PostgresStore) AppendHistory(ctx context.Context, r models.ConversationHistory) error {
	query := `
		INSERT INTO conversation_history
			(id, account_id, owner_id, flow_id, final_node_id, variables, status, extra, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query, r.ID, r.Identity.AccountID, r.Identity.OwnerID,
		r.Identity.FlowID, r.FinalNodeID, marshalMap(r.Variables), string(r.Status),
		marshalMap(r.Extra), r.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AppendHistory failed", "error", err, "identity", r.Identity.Key())
		return fmt.Errorf("failed to insert history record %s: %w", r.ID, err)
	}
	slog.Debug("PostgresStore AppendHistory succeeded", "id", r.ID, "status", r.Status)
	return nil
}

// ListHistory returns the account's terminal records, newest first.
func (s *PostgresStore) ListHistory(ctx context.Context, accountID string) ([]models.ConversationHistory, error) {
	query := `SELECT id, account_id, owner_id, flow_id, final_node_id, variables, status, extra, created_at
			  FROM conversation_history WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		slog.Error("PostgresStore ListHistory query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.ConversationHistory
	for rows.Next() {
		r, err := scanHistory(rows)
		if err != nil {
			slog.Error("PostgresStore ListHistory scan failed", "error", err)
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListHistory rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL connection pool")
	return s.db.Close()
}
