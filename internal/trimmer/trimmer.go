// Package trimmer implements the Retention Trimmer (spec.md §4.6):
// periodic MINID trimming of the stream so it doesn't grow without bound,
// while never discarding an entry the cursor hasn't passed yet (I5).
package trimmer

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Stream is the narrow seam trimmer needs from a redis client.
type Stream interface {
	XTrimMinID(ctx context.Context, key, minID string) *redis.IntCmd
}

// EarliestSentinel is the cursor value meaning "nothing processed yet";
// trimming against it would be a no-op at best and a footgun at worst, so
// it is treated the same as an absent cursor.
const EarliestSentinel = "0-0"

type Trimmer struct {
	stream     Stream
	streamName string
	logger     *slog.Logger
}

func New(stream Stream, streamName string, logger *slog.Logger) *Trimmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trimmer{stream: stream, streamName: streamName, logger: logger}
}

// Trim computes the retention watermark from cursor and keepMinutes and
// asks the broker to discard entries strictly below it. Errors are
// logged, never fatal (spec.md §4.6/§7).
func (t *Trimmer) Trim(ctx context.Context, cursor string, keepMinutes int, nowMS int64) {
	watermark, ok := Watermark(cursor, keepMinutes, nowMS)
	if !ok {
		return
	}

	if err := t.stream.XTrimMinID(ctx, t.streamName, watermark).Err(); err != nil {
		t.logger.Warn("trim failed", slog.String("watermark", watermark), slog.Any("err", err))
	}
}

// Watermark computes the MINID trim watermark per spec.md §4.6. Returns
// ok=false when cursor is absent or the earliest sentinel, meaning the
// trimmer should no-op.
func Watermark(cursor string, keepMinutes int, nowMS int64) (watermark string, ok bool) {
	if cursor == "" || cursor == EarliestSentinel {
		return "", false
	}

	lastMS, ok := parseMillisPrefix(cursor)
	if !ok {
		return "", false
	}

	cutoffMS := nowMS - int64(keepMinutes)*60*1000
	targetMS := cutoffMS
	if lastMS < targetMS {
		targetMS = lastMS
	}

	if targetMS == lastMS {
		return cursor, true
	}
	return strconv.FormatInt(targetMS, 10) + "-0", true
}

func parseMillisPrefix(entryID string) (int64, bool) {
	ms, _, found := strings.Cut(entryID, "-")
	if !found {
		ms = entryID
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
