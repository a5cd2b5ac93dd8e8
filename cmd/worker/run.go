package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/videogen/streamworker/internal/config"
	"github.com/videogen/streamworker/internal/cursorstore"
	"github.com/videogen/streamworker/internal/dispatcher"
	"github.com/videogen/streamworker/internal/health"
	"github.com/videogen/streamworker/internal/jobs"
	"github.com/videogen/streamworker/internal/logging"
	"github.com/videogen/streamworker/internal/markers"
	"github.com/videogen/streamworker/internal/runner"
	"github.com/videogen/streamworker/internal/streamio"
	"github.com/videogen/streamworker/internal/trimmer"
	"github.com/videogen/streamworker/internal/watchdog"
	"github.com/videogen/streamworker/internal/worker"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the stream-consuming dispatch loop",
		Flags: config.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromEnv()
			if err != nil {
				return fmt.Errorf("logging: %w", err)
			}

			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			client := redis.NewClient(opt)
			defer client.Close()

			sup := streamio.NewSupervisor(redisDialer(client), logger)
			reader := streamio.NewReader(sup, cfg.JobsStream, logger)
			cursor := cursorstore.New(client, logger)
			markerStore := markers.New(client, logger)
			jobRecord := jobs.New(client, logger)
			childRunner := runner.New(runner.NewPythonCommand(cfg.RunnerScript), jobRecord, cfg.RunnerTimeout, logger)
			disp := dispatcher.New(markerStore, jobRecord, childRunner, dispatcher.Config{
				RetryBackoffOnError: cfg.RetryBackoffOnError,
				MaxEntryFailures:    cfg.MaxEntryFailures,
			}, logger)
			trim := trimmer.New(client, cfg.JobsStream, logger)
			monitor := health.NewMonitor(0, 3)
			notifier := watchdog.New()

			loop := worker.New(reader, cursor, disp, trim, monitor, worker.Config{
				StartID:        cfg.JobsStartID,
				XReadCount:     int(cfg.XReadCount),
				XReadBlockMS:   int(cfg.XReadBlock.Milliseconds()),
				TrimMinutes:    cfg.TrimMinutes,
				TrimEveryLoops: cfg.TrimEvery,
			}, logger)

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := notifier.Ready(); err != nil {
				logger.Warn("systemd notify ready failed", "err", err)
			}
			stopPinger := notifier.StartPinger(runCtx, monitor)
			defer stopPinger()

			logger.Info("worker starting", "stream", cfg.JobsStream, "redis_url", cfg.RedisURL)
			runErr := loop.Run(runCtx)

			_ = notifier.Stopping()
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			logger.Info("worker stopped")
			return nil
		},
	}
}

// redisDialer adapts a long-lived *redis.Client into a streamio.Dialer:
// go-redis already pools and retries connections internally, so "dial"
// here just confirms liveness via PING and hands back the same client.
func redisDialer(client *redis.Client) streamio.Dialer {
	return func(ctx context.Context) (streamio.Doer, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return client, nil
	}
}
