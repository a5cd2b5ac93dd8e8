// Package cursorstore persists the worker's read cursor: the entry_id of
// the broker stream the worker has processed up to (spec.md §4.1).
package cursorstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StringStore is the narrow seam cursorstore needs from a redis client —
// Get/Set on a single string key — so tests substitute an in-memory fake
// instead of a real broker connection, the same narrowing the teacher
// applies to ReadContexter/WriteContexter.
type StringStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Key is the broker key holding the durable cursor.
const Key = "videogen:last_id"

type Store struct {
	store  StringStore
	logger *slog.Logger
}

func New(store StringStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{store: store, logger: logger}
}

// Load returns the persisted cursor, or ("", false) if none exists yet.
func (s *Store) Load(ctx context.Context) (string, bool) {
	val, err := s.store.Get(ctx, Key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cursor load failed", slog.Any("err", err))
		}
		return "", false
	}
	return val, true
}

// Store persists the cursor unconditionally. Failures are logged but
// non-fatal (spec.md §4.1): the consequence is at most one duplicate
// replay on restart, which the processing/completion markers absorb.
func (s *Store) Store(ctx context.Context, entryID string) {
	if err := s.store.Set(ctx, Key, entryID, 0*time.Second).Err(); err != nil {
		s.logger.Warn("cursor store failed", slog.String("entry_id", entryID), slog.Any("err", err))
	}
}
