// Package dispatcher implements the Handler Dispatcher (spec.md §4.5):
// for each decoded stream entry, it coordinates marker writes, the child
// runner invocation, Job Record updates, and the decision of whether the
// cursor may advance past this entry.
//
// Modeled on the teacher's handleWork (broker/broker.go): one function,
// one entry, a sequence of guarded steps that either continue, advance,
// or break the batch — generalized here from four wire payload types to
// this package's seven dispatch steps.
package dispatcher

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/videogen/streamworker/internal/jobs"
	"github.com/videogen/streamworker/internal/markers"
	"github.com/videogen/streamworker/internal/wire"
)

// RunnerInvoker is the narrow seam onto the child-process supervisor.
type RunnerInvoker interface {
	Invoke(ctx context.Context, jid string) error
}

// Outcome tells the caller (the worker Loop) what to do with the cursor
// and the rest of the current batch after dispatching one entry.
type Outcome struct {
	// Advance is true when the cursor may move to this entry's ID.
	Advance bool
	// BreakBatch is true when the remaining entries in this batch must be
	// re-read next iteration rather than dispatched now (spec.md §5:
	// "A fatal-per-entry error halts further advancement in that batch").
	BreakBatch bool
}

type Config struct {
	RetryBackoffOnError time.Duration
	MaxEntryFailures    int64
}

type Dispatcher struct {
	markers *markers.Markers
	jobs    *jobs.Record
	runner  RunnerInvoker
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func New(m *markers.Markers, j *jobs.Record, r RunnerInvoker, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{markers: m, jobs: j, runner: r, cfg: cfg, logger: logger, now: time.Now}
}

// Dispatch runs the full sequence of spec.md §4.5 steps 1-7 for a single
// decoded entry, plus the poison-pill resolution of spec.md §9's open
// question.
func (d *Dispatcher) Dispatch(ctx context.Context, entry wire.Entry) Outcome {
	nowMS := jobs.TimestampMS(d.now())

	// Step 1: extract jid.
	jid, ok := entry.Fields[wire.FieldKey]
	if !ok || len(jid) == 0 {
		d.logger.Info("malformed entry: missing jid, advancing past it", slog.String("entry_id", entry.ID))
		return Outcome{Advance: true}
	}
	jidStr := string(jid)

	// Step 2: already completed?
	completed, err := d.markers.IsCompleted(ctx, entry.ID)
	if err != nil {
		d.logger.Warn("is_completed check failed, proceeding cautiously", slog.String("entry_id", entry.ID), slog.Any("err", err))
	} else if completed {
		d.logger.Info("entry already completed, skipping", slog.String("entry_id", entry.ID), slog.String("jid", jidStr))
		return Outcome{Advance: true}
	}

	// Step 3: mark processing.
	if err := d.markers.MarkProcessing(ctx, entry.ID, jidStr, nowMS); err != nil {
		d.logger.Error("processing marker write failed, will retry from same cursor",
			slog.String("entry_id", entry.ID), slog.Any("err", err))
		d.sleepBackoff(ctx)
		return Outcome{Advance: false, BreakBatch: true}
	}

	// Step 4: best-effort job record update.
	d.jobs.SetProcessing(ctx, jidStr, entry.ID)

	// Step 5: invoke the child runner.
	runErr := d.runner.Invoke(ctx, jidStr)
	if runErr == nil {
		// Step 6: success.
		if err := d.markers.MarkCompleted(ctx, entry.ID, jobs.TimestampMS(d.now())); err != nil {
			d.logger.Warn("completion marker write failed, advancing anyway (result_url short-circuits replay)",
				slog.String("entry_id", entry.ID), slog.Any("err", err))
		}
		d.jobs.SetCompleted(ctx, jidStr)
		return Outcome{Advance: true}
	}

	// Step 7: failure.
	d.jobs.SetFailed(ctx, jidStr, runErr.Error())

	if d.cfg.MaxEntryFailures > 0 {
		failures, countErr := d.markers.IncrFailure(ctx, entry.ID)
		if countErr == nil && failures >= d.cfg.MaxEntryFailures {
			d.logger.Error("entry exceeded max failures, marking permanently failed and advancing",
				slog.String("entry_id", entry.ID), slog.String("jid", jidStr), slog.Int64("failures", failures))
			d.jobs.SetFailed(ctx, jidStr, "poison pill: exceeded "+strconv.FormatInt(d.cfg.MaxEntryFailures, 10)+" retries")
			return Outcome{Advance: true}
		}
	}

	d.logger.Error("runner invocation failed, will retry from same cursor",
		slog.String("entry_id", entry.ID), slog.String("jid", jidStr), slog.Any("err", runErr))
	d.sleepBackoff(ctx)
	return Outcome{Advance: false, BreakBatch: true}
}

func (d *Dispatcher) sleepBackoff(ctx context.Context) {
	if d.cfg.RetryBackoffOnError <= 0 {
		return
	}
	select {
	case <-time.After(d.cfg.RetryBackoffOnError):
	case <-ctx.Done():
	}
}
