// Package config defines the worker's runtime configuration: the
// defaults of spec.md §6 plus the poison-pill and retry-backoff knobs
// SPEC_FULL.md adds, bound to environment variables through
// github.com/urfave/cli/v3 flags so the worker runs unattended from a
// bare container environment.
package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// Config is the fully validated set of knobs the worker needs at
// startup. Every field has a spec.md §6 (or SPEC_FULL.md) default.
type Config struct {
	RedisURL     string
	JobsStream   string
	JobsStartID  string
	XReadBlock   time.Duration
	XReadCount   int64
	TrimMinutes  int
	TrimEvery    int
	RunnerTimeout time.Duration
	RunnerScript  string

	MaxEntryFailures    int64
	RetryBackoffOnError time.Duration
}

const (
	flagRedisURL      = "redis-url"
	flagJobsStream    = "jobs-stream"
	flagJobsStartID   = "jobs-start-id"
	flagXReadBlockMS  = "xread-block-ms"
	flagXReadCount    = "xread-count"
	flagTrimMinutes   = "trim-minutes"
	flagTrimEvery     = "trim-every-loops"
	flagRunnerTimeout = "runner-timeout-s"
	flagRunnerScript  = "runner-script"
	flagMaxFailures   = "max-entry-failures"
	flagRetryBackoff  = "retry-backoff-ms"
)

// Flags returns the urfave/cli/v3 flag set shared by every subcommand
// that needs worker configuration (run, status, health).
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagRedisURL,
			Sources: cli.EnvVars("REDIS_URL"),
			Value:   "redis://redis:6379/0",
			Usage:   "broker endpoint",
		},
		&cli.StringFlag{
			Name:    flagJobsStream,
			Sources: cli.EnvVars("JOBS_STREAM"),
			Value:   "videogen:jobs",
			Usage:   "stream name",
		},
		&cli.StringFlag{
			Name:    flagJobsStartID,
			Sources: cli.EnvVars("JOBS_START_ID"),
			Value:   "$",
			Usage:   "start position when no cursor exists ($ or 0-0)",
		},
		&cli.IntFlag{
			Name:    flagXReadBlockMS,
			Sources: cli.EnvVars("XREAD_BLOCK_MS"),
			Value:   5000,
			Usage:   "max block per read, in milliseconds",
		},
		&cli.IntFlag{
			Name:    flagXReadCount,
			Sources: cli.EnvVars("XREAD_COUNT"),
			Value:   10,
			Usage:   "max entries per batch",
		},
		&cli.IntFlag{
			Name:    flagTrimMinutes,
			Sources: cli.EnvVars("TRIM_MINUTES"),
			Value:   120,
			Usage:   "retention window, in minutes",
		},
		&cli.IntFlag{
			Name:    flagTrimEvery,
			Sources: cli.EnvVars("TRIM_EVERY_LOOPS"),
			Value:   80,
			Usage:   "trim cadence, in loop iterations",
		},
		&cli.IntFlag{
			Name:    flagRunnerTimeout,
			Sources: cli.EnvVars("RUNNER_TIMEOUT_S"),
			Value:   600,
			Usage:   "child runner hard timeout, in seconds",
		},
		&cli.StringFlag{
			Name:    flagRunnerScript,
			Sources: cli.EnvVars("RUNNER_SCRIPT"),
			Value:   "/app/model_runner.py",
			Usage:   "child runner script path, invoked as python3 <script> <jid>",
		},
		&cli.IntFlag{
			Name:    flagMaxFailures,
			Sources: cli.EnvVars("MAX_ENTRY_FAILURES"),
			Value:   5,
			Usage:   "consecutive per-entry failures before the poison-pill resolution advances past it; 0 disables it",
		},
		&cli.IntFlag{
			Name:    flagRetryBackoff,
			Sources: cli.EnvVars("RETRY_BACKOFF_ON_ERROR_MS"),
			Value:   2000,
			Usage:   "pause before retrying a batch-breaking per-entry failure, in milliseconds",
		},
	}
}

// FromCommand builds and validates a Config from a parsed *cli.Command.
func FromCommand(cmd *cli.Command) (Config, error) {
	cfg := Config{
		RedisURL:      cmd.String(flagRedisURL),
		JobsStream:    cmd.String(flagJobsStream),
		JobsStartID:   cmd.String(flagJobsStartID),
		XReadBlock:    time.Duration(cmd.Int(flagXReadBlockMS)) * time.Millisecond,
		XReadCount:    cmd.Int(flagXReadCount),
		TrimMinutes:   int(cmd.Int(flagTrimMinutes)),
		TrimEvery:     int(cmd.Int(flagTrimEvery)),
		RunnerTimeout: time.Duration(cmd.Int(flagRunnerTimeout)) * time.Second,
		RunnerScript:  cmd.String(flagRunnerScript),

		MaxEntryFailures:    cmd.Int(flagMaxFailures),
		RetryBackoffOnError: time.Duration(cmd.Int(flagRetryBackoff)) * time.Millisecond,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on configuration a running worker could never
// recover from, matching the teacher's init-time fail-loud style.
func (c Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("config: REDIS_URL must not be empty")
	}
	if c.JobsStream == "" {
		return fmt.Errorf("config: JOBS_STREAM must not be empty")
	}
	if c.RunnerScript == "" {
		return fmt.Errorf("config: RUNNER_SCRIPT must not be empty")
	}
	if c.JobsStartID != "$" && c.JobsStartID != "0-0" {
		return fmt.Errorf("config: JOBS_START_ID must be %q or %q, got %q", "$", "0-0", c.JobsStartID)
	}
	if c.XReadBlock <= 0 {
		return fmt.Errorf("config: XREAD_BLOCK_MS must be positive, got %d", c.XReadBlock.Milliseconds())
	}
	if c.XReadCount <= 0 {
		return fmt.Errorf("config: XREAD_COUNT must be positive, got %d", c.XReadCount)
	}
	if c.TrimMinutes <= 0 {
		return fmt.Errorf("config: TRIM_MINUTES must be positive, got %d", c.TrimMinutes)
	}
	if c.TrimEvery <= 0 {
		return fmt.Errorf("config: TRIM_EVERY_LOOPS must be positive, got %d", c.TrimEvery)
	}
	if c.RunnerTimeout <= 0 {
		return fmt.Errorf("config: RUNNER_TIMEOUT_S must be positive, got %d", int64(c.RunnerTimeout.Seconds()))
	}
	if c.MaxEntryFailures < 0 {
		return fmt.Errorf("config: MAX_ENTRY_FAILURES must not be negative, got %d", c.MaxEntryFailures)
	}
	if c.RetryBackoffOnError < 0 {
		return fmt.Errorf("config: RETRY_BACKOFF_ON_ERROR_MS must not be negative, got %d", c.RetryBackoffOnError.Milliseconds())
	}
	return nil
}
