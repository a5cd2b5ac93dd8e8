// Package jobs reads and writes the Job Record (spec.md §3): the
// producer-owned `job:<jid>` hash the worker and the child runner both
// write fields onto.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status values for the job:<jid>.status field (spec.md §3).
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	fieldStatus             = "status"
	fieldError              = "error"
	fieldResultURL          = "result_url"
	fieldProcessingEntryID  = "processing_entry_id"
)

// Store is the narrow seam jobs needs from a redis client.
type Store interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

type Record struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Record {
	if logger == nil {
		logger = slog.Default()
	}
	return &Record{store: store, logger: logger}
}

func key(jid string) string { return "job:" + jid }

// ResultURL reads job:<jid>.result_url, returning "" if unset or on read
// failure (read failures are logged, not propagated, since every caller
// treats an unreadable result_url the same as an empty one).
func (r *Record) ResultURL(ctx context.Context, jid string) string {
	val, err := r.store.HGet(ctx, key(jid), fieldResultURL).Result()
	if err != nil && err != redis.Nil {
		r.logger.Warn("result_url read failed", slog.String("jid", jid), slog.Any("err", err))
	}
	return val
}

// SetProcessing best-effort records that dispatch has begun for jid
// against entryID (spec.md §4.5 step 4). Failures are logged only.
func (r *Record) SetProcessing(ctx context.Context, jid, entryID string) {
	r.hset(ctx, jid, fieldStatus, StatusProcessing, fieldProcessingEntryID, entryID)
}

// SetCompleted best-effort records successful completion.
func (r *Record) SetCompleted(ctx context.Context, jid string) {
	r.hset(ctx, jid, fieldStatus, StatusCompleted)
}

// SetFailed best-effort records a failure and its human-readable cause.
func (r *Record) SetFailed(ctx context.Context, jid, cause string) {
	r.hset(ctx, jid, fieldStatus, StatusFailed, fieldError, cause)
}

func (r *Record) hset(ctx context.Context, jid string, kv ...interface{}) {
	if err := r.store.HSet(ctx, key(jid), kv...).Err(); err != nil {
		r.logger.Warn("job record write failed", slog.String("jid", jid), slog.Any("err", err))
	}
}

// TimestampMS is a small shared helper: milliseconds since epoch, the
// unit every marker and job-record timestamp field in this worker uses.
func TimestampMS(t time.Time) int64 {
	return t.UnixMilli()
}
