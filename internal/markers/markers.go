// Package markers implements the processing/completion idempotency
// records keyed by stream entry_id (spec.md §4.4), plus the per-entry
// failure counter used to resolve the poison-pill open question (spec.md
// §9, SPEC_FULL.md "Supplemented features").
package markers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the narrow seam markers needs from a redis client. Grounded on
// the teacher's waiterMap (broker/waiters.go): a typed wrapper over a
// handful of primitive ops, generalized here from an in-memory TTL map to
// Redis-native TTL since markers must survive process restarts.
type Store interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	processingPrefix = "videogen:processing:"
	completedPrefix  = "videogen:completed:"
	legacyCompletedSet = "videogen:completed"

	processingTTL = 24 * time.Hour
	completedTTL  = 7 * 24 * time.Hour

	failuresField = "failures"
)

type Markers struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Markers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Markers{store: store, logger: logger}
}

// MarkProcessing writes the processing marker `{jid, ts_ms}` with a 24h
// TTL. Per spec.md §4.4 its failure is fatal for the entry: the Dispatcher
// must not proceed with the child runner invocation.
func (m *Markers) MarkProcessing(ctx context.Context, entryID, jid string, nowMS int64) error {
	key := processingPrefix + entryID
	if err := m.store.HSet(ctx, key, "jid", jid, "ts_ms", nowMS).Err(); err != nil {
		return err
	}
	if err := m.store.Expire(ctx, key, processingTTL).Err(); err != nil {
		m.logger.Warn("processing marker TTL not set", slog.String("entry_id", entryID), slog.Any("err", err))
	}
	return nil
}

// IsCompleted reports whether a Completion Marker exists for entryID,
// checking both the per-entry key and, for backward compatibility during
// transition, the legacy set-membership representation (spec.md §4.4,
// §9). A store failure is treated as "unknown" — the caller is expected
// to proceed cautiously rather than treat it as definitively false.
func (m *Markers) IsCompleted(ctx context.Context, entryID string) (completed bool, knownErr error) {
	val, err := m.store.Get(ctx, completedPrefix+entryID).Result()
	if err == nil && val != "" {
		return true, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}

	isMember, err := m.store.SIsMember(ctx, legacyCompletedSet, entryID).Result()
	if err != nil {
		return false, err
	}
	return isMember, nil
}

// MarkCompleted writes the completion marker and best-effort deletes the
// processing marker. Per spec.md §4.4/§7 its own failure is non-fatal:
// the entry is still acknowledged because the true side effect
// (result_url) is already present on the Job Record.
func (m *Markers) MarkCompleted(ctx context.Context, entryID string, nowMS int64) error {
	err := m.store.Set(ctx, completedPrefix+entryID, nowMS, completedTTL).Err()
	if err != nil {
		m.logger.Warn("completion marker write failed", slog.String("entry_id", entryID), slog.Any("err", err))
	}
	if delErr := m.store.Del(ctx, processingPrefix+entryID).Err(); delErr != nil {
		m.logger.Debug("processing marker delete failed (will expire via TTL)", slog.String("entry_id", entryID), slog.Any("err", delErr))
	}
	return err
}

// IncrFailure bumps the per-entry failure counter stored alongside the
// processing marker and returns the new count. This has no equivalent in
// spec.md's base design; it implements the open question's suggested
// poison-pill counter (spec.md §9).
func (m *Markers) IncrFailure(ctx context.Context, entryID string) (int64, error) {
	key := processingPrefix + entryID
	count, err := m.store.HIncrBy(ctx, key, failuresField, 1).Result()
	if err != nil {
		return 0, err
	}
	if err := m.store.Expire(ctx, key, processingTTL).Err(); err != nil {
		m.logger.Debug("failure counter TTL refresh failed", slog.String("entry_id", entryID), slog.Any("err", err))
	}
	return count, nil
}

// FailureCount returns the current per-entry failure count, 0 if no
// processing marker (and therefore no counter) exists yet.
func (m *Markers) FailureCount(ctx context.Context, entryID string) (int64, error) {
	fields, err := m.store.HGetAll(ctx, processingPrefix+entryID).Result()
	if err != nil {
		return 0, err
	}
	raw, ok := fields[failuresField]
	if !ok || raw == "" {
		return 0, nil
	}
	var n int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, nil
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}
