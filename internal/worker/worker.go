// Package worker implements the single-logical-consumer main loop
// (spec.md §5): read a batch at the current cursor, dispatch each
// entry in order, advance and persist the cursor as dispatches permit,
// and trim the stream on a cadence. Modeled on the teacher's
// broker.New/readLoop wiring (broker/broker.go) — one goroutine,
// ctx.Done() checked between units of work, fixed-length suspension
// points instead of a worker pool, since spec.md §5 forbids running
// more than one dispatcher against the same cursor.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/videogen/streamworker/internal/dispatcher"
	"github.com/videogen/streamworker/internal/wire"
)

// Reader is the narrow seam onto the stream read path.
type Reader interface {
	ReadBatch(ctx context.Context, cursor string, count int, blockMS int) ([]wire.Entry, error)
}

// CursorStore is the narrow seam onto the durable cursor.
type CursorStore interface {
	Load(ctx context.Context) (string, bool)
	Store(ctx context.Context, entryID string)
}

// Dispatcher is the narrow seam onto per-entry handling.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry wire.Entry) dispatcher.Outcome
}

// Trimmer is the narrow seam onto retention trimming.
type Trimmer interface {
	Trim(ctx context.Context, cursor string, keepMinutes int, nowMS int64)
}

// HealthRecorder is the narrow seam onto liveness bookkeeping.
type HealthRecorder interface {
	RecordSuccess()
	RecordFailure()
}

// Config carries the loop's tunables, all sourced from internal/config.
type Config struct {
	StartID        string
	XReadCount     int
	XReadBlockMS   int
	TrimMinutes    int
	TrimEveryLoops int
}

const (
	// idleSleep is the suspension point when a batch came back with no
	// actionable entries despite a non-timeout reply (spec.md §5).
	idleSleep = 25 * time.Millisecond
	// readTimeoutSleep is the suspension point after a plain block
	// timeout (the common case: XREAD BLOCK elapsed with nothing new).
	readTimeoutSleep = 10 * time.Millisecond
	// readErrorSleep bounds the busy-loop when ReadBatch itself errors
	// (e.g. reconnect exhausted); the supervisor already backed off
	// internally, this just avoids a tight retry on top of that.
	readErrorSleep = 200 * time.Millisecond
)

type Loop struct {
	reader     Reader
	cursor     CursorStore
	dispatcher Dispatcher
	trimmer    Trimmer
	health     HealthRecorder
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time
}

func New(reader Reader, cursor CursorStore, disp Dispatcher, trimmer Trimmer, health HealthRecorder, cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		reader:     reader,
		cursor:     cursor,
		dispatcher: disp,
		trimmer:    trimmer,
		health:     health,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes the main loop until ctx is canceled. It always returns
// ctx.Err() on exit: termination is driven entirely by the caller's
// signal handling, per spec.md §5.
func (l *Loop) Run(ctx context.Context) error {
	cursor, ok := l.cursor.Load(ctx)
	if !ok {
		cursor = l.cfg.StartID
	}

	var iteration int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := l.reader.ReadBatch(ctx, cursor, l.cfg.XReadCount, l.cfg.XReadBlockMS)
		if err != nil {
			l.recordFailure()
			l.logger.Warn("read batch failed, retrying from same cursor", slog.Any("err", err))
			if !l.sleep(ctx, readErrorSleep) {
				return ctx.Err()
			}
			continue
		}

		if len(entries) == 0 {
			sleep := readTimeoutSleep
			if entries != nil {
				sleep = idleSleep
			}
			if !l.sleep(ctx, sleep) {
				return ctx.Err()
			}
			iteration++
			l.maybeTrim(ctx, cursor, iteration)
			continue
		}

		for _, e := range entries {
			outcome := l.dispatcher.Dispatch(ctx, e)
			if outcome.Advance {
				cursor = e.ID
				l.cursor.Store(ctx, cursor)
				l.recordSuccess()
			}
			if outcome.BreakBatch {
				l.recordFailure()
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		iteration++
		l.maybeTrim(ctx, cursor, iteration)
	}
}

func (l *Loop) maybeTrim(ctx context.Context, cursor string, iteration int) {
	if l.cfg.TrimEveryLoops <= 0 || iteration%l.cfg.TrimEveryLoops != 0 {
		return
	}
	l.trimmer.Trim(ctx, cursor, l.cfg.TrimMinutes, l.now().UnixMilli())
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Loop) recordSuccess() {
	if l.health != nil {
		l.health.RecordSuccess()
	}
}

func (l *Loop) recordFailure() {
	if l.health != nil {
		l.health.RecordFailure()
	}
}
