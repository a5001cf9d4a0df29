// Package store provides storage backends for conversation state and history.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/atendify/flowengine/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversation state and history in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite store from the configured DSN (a file
// path). The parent directory is created when missing and migrations run on
// open.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied")

	return &SQLiteStore{db: db}, nil
}

// LoadState retrieves the conversation state for an identity.
func (s *SQLiteStore) LoadState(ctx context.Context, id models.Identity) (*models.ConversationState, error) {
	query := `SELECT current_node_id, variables, last_message, created_at, updated_at
			  FROM conversation_states WHERE account_id = ? AND owner_id = ? AND flow_id = ?`

	state := models.ConversationState{Identity: id}
	var variablesJSON sql.NullString
	var lastMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID).Scan(
		&state.CurrentNodeID, &variablesJSON, &lastMessage, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadState not found", "identity", id.Key())
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadState failed", "error", err, "identity", id.Key())
		return nil, err
	}

	state.Variables = unmarshalMap(variablesJSON.String)
	state.LastMessage = lastMessage.String
	return &state, nil
}

// SaveState stores or replaces the conversation state row.
func (s *SQLiteStore) SaveState(ctx context.Context, state models.ConversationState) error {
	query := `
		INSERT OR REPLACE INTO conversation_states
			(account_id, owner_id, flow_id, current_node_id, variables, last_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id := state.Identity
	_, err := s.db.ExecContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID,
		state.CurrentNodeID, marshalMap(state.Variables), state.LastMessage,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveState failed", "error", err, "identity", id.Key())
		return err
	}
	slog.Debug("SQLiteStore SaveState succeeded", "identity", id.Key(), "node", state.CurrentNodeID)
	return nil
}

// DeleteState removes the conversation state row.
func (s *SQLiteStore) DeleteState(ctx context.Context, id models.Identity) error {
	query := `DELETE FROM conversation_states WHERE account_id = ? AND owner_id = ? AND flow_id = ?`

	_, err := s.db.ExecContext(ctx, query, id.AccountID, id.OwnerID, id.FlowID)
	if err != nil {
		slog.Error("SQLiteStore DeleteState failed", "error", err, "identity", id.Key())
		return err
	}
	slog.Debug("SQLiteStore DeleteState succeeded", "identity", id.Key())
	return nil
}

// AppendHistory inserts one terminal audit record.
func (s *SQLiteStore) AppendHistory(ctx context.Context, r models.ConversationHistory) error {
	query := `
		INSERT INTO conversation_history
			(id, account_id, owner_id, flow_id, final_node_id, variables, status, extra, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, r.ID, r.Identity.AccountID, r.Identity.OwnerID,
		r.Identity.FlowID, r.FinalNodeID, marshalMap(r.Variables), string(r.Status),
		marshalMap(r.Extra), r.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AppendHistory failed", "error", err, "identity", r.Identity.Key())
		return fmt.Errorf("failed to insert history record %s: %w", r.ID, err)
	}
	slog.Debug("SQLiteStore AppendHistory succeeded", "id", r.ID, "status", r.Status)
	return nil
}

// ListHistory returns the account's terminal records, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, accountID string) ([]models.ConversationHistory, error) {
	query := `SELECT id, account_id, owner_id, flow_id, final_node_id, variables, status, extra, created_at
			  FROM conversation_history WHERE account_id = ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		slog.Error("SQLiteStore ListHistory query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.ConversationHistory
	for rows.Next() {
		r, err := scanHistory(rows)
		if err != nil {
			slog.Error("SQLiteStore ListHistory scan failed", "error", err)
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListHistory rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// scanHistory scans one history row shared by the SQLite and Postgres
// backends (identical column order).
func scanHistory(rows *sql.Rows) (models.ConversationHistory, error) {
	var r models.ConversationHistory
	var variablesJSON, extraJSON sql.NullString
	var status string
	err := rows.Scan(&r.ID, &r.Identity.AccountID, &r.Identity.OwnerID, &r.Identity.FlowID,
		&r.FinalNodeID, &variablesJSON, &status, &extraJSON, &r.CreatedAt)
	if err != nil {
		return r, fmt.Errorf("scan history row failed: %w", err)
	}
	r.Variables = unmarshalMap(variablesJSON.String)
	r.Extra = unmarshalMap(extraJSON.String)
	r.Status = models.HistoryStatus(status)
	return r, nil
}
