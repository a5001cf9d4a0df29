// Package store provides storage backends for conversation state and history.
//
// This file implements the Redis-backed store: state rows are JSON values
// keyed by the identity tuple, history is an append-only list per account.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atendify/flowengine/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisStatePrefix   = "flowengine:state:"
	redisHistoryPrefix = "flowengine:history:"
)

// RedisStore persists conversation state and history in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis store from the configured redis:// DSN.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}
	ropts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("RedisStore DSN parse failed", "error", err)
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(ropts)), nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(id models.Identity) string {
	return redisStatePrefix + id.Key()
}

func historyKey(accountID string) string {
	return redisHistoryPrefix + accountID
}

// LoadState retrieves the conversation state for an identity.
func (s *RedisStore) LoadState(ctx context.Context, id models.Identity) (*models.ConversationState, error) {
	val, err := s.client.Get(ctx, stateKey(id)).Result()
	if err == redis.Nil {
		slog.Debug("RedisStore LoadState not found", "identity", id.Key())
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore LoadState failed", "error", err, "identity", id.Key())
		return nil, fmt.Errorf("failed to get state from redis: %w", err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		slog.Error("RedisStore LoadState unmarshal failed", "error", err, "identity", id.Key())
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// SaveState replaces the whole state value atomically (plain SET).
func (s *RedisStore) SaveState(ctx context.Context, state models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.Identity), data, 0).Err(); err != nil {
		slog.Error("RedisStore SaveState failed", "error", err, "identity", state.Identity.Key())
		return fmt.Errorf("failed to save state to redis: %w", err)
	}
	slog.Debug("RedisStore SaveState succeeded", "identity", state.Identity.Key(), "node", state.CurrentNodeID)
	return nil
}

// DeleteState removes the state value.
func (s *RedisStore) DeleteState(ctx context.Context, id models.Identity) error {
	if err := s.client.Del(ctx, stateKey(id)).Err(); err != nil {
		slog.Error("RedisStore DeleteState failed", "error", err, "identity", id.Key())
		return fmt.Errorf("failed to delete state from redis: %w", err)
	}
	slog.Debug("RedisStore DeleteState succeeded", "identity", id.Key())
	return nil
}

// AppendHistory pushes one terminal record onto the account's history list.
func (s *RedisStore) AppendHistory(ctx context.Context, r models.ConversationHistory) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	if err := s.client.LPush(ctx, historyKey(r.Identity.AccountID), data).Err(); err != nil {
		slog.Error("RedisStore AppendHistory failed", "error", err, "identity", r.Identity.Key())
		return fmt.Errorf("failed to append history to redis: %w", err)
	}
	slog.Debug("RedisStore AppendHistory succeeded", "id", r.ID, "status", r.Status)
	return nil
}

// ListHistory returns the account's records, newest first (LPUSH order).
func (s *RedisStore) ListHistory(ctx context.Context, accountID string) ([]models.ConversationHistory, error) {
	vals, err := s.client.LRange(ctx, historyKey(accountID), 0, -1).Result()
	if err != nil {
		slog.Error("RedisStore ListHistory failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	var records []models.ConversationHistory
	for _, val := range vals {
		var r models.ConversationHistory
		if err := json.Unmarshal([]byte(val), &r); err != nil {
			slog.Error("RedisStore ListHistory unmarshal failed", "error", err, "accountID", accountID)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	slog.Debug("Closing Redis client")
	return s.client.Close()
}
