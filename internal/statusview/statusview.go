// Package statusview collects a point-in-time snapshot of worker state
// for the operability surface (cmd/worker status), supplementing
// the distilled spec per SPEC_FULL.md: cursor position, stream length,
// and job counts by status.
package statusview

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videogen/streamworker/internal/cursorstore"
	"github.com/videogen/streamworker/internal/jobs"
)

// Client is the narrow seam statusview needs from a redis client.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	XLen(ctx context.Context, stream string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Snapshot is a point-in-time view of worker state.
type Snapshot struct {
	Cursor         string
	StreamLen      int64
	ProcessingJobs int
	CompletedJobs  int
	FailedJobs     int
	CollectedAt    time.Time
}

const jobScanCount = 200

// Collect gathers a Snapshot. Errors reading the stream length or
// scanning job keys are fatal to the call (the operator needs to know the
// broker is reachable); an unreadable cursor or job status is skipped,
// leaving the cursor empty or that job uncounted.
func Collect(ctx context.Context, client Client, streamName string, now time.Time) (Snapshot, error) {
	snap := Snapshot{CollectedAt: now}

	if cur, err := client.Get(ctx, cursorstore.Key).Result(); err == nil {
		snap.Cursor = cur
	}

	n, err := client.XLen(ctx, streamName).Result()
	if err != nil {
		return snap, fmt.Errorf("statusview: xlen: %w", err)
	}
	snap.StreamLen = n

	var scanCursor uint64
	for {
		keys, next, err := client.Scan(ctx, scanCursor, "job:*", jobScanCount).Result()
		if err != nil {
			return snap, fmt.Errorf("statusview: scan: %w", err)
		}
		for _, key := range keys {
			status, err := client.HGet(ctx, key, "status").Result()
			if err != nil {
				continue
			}
			switch status {
			case jobs.StatusProcessing:
				snap.ProcessingJobs++
			case jobs.StatusCompleted:
				snap.CompletedJobs++
			case jobs.StatusFailed:
				snap.FailedJobs++
			}
		}
		scanCursor = next
		if scanCursor == 0 {
			break
		}
	}

	return snap, nil
}
