// Command worker runs the videogen stream worker: a durable consumer of
// a Redis stream of video-generation jobs, plus an operability surface
// (status table, health endpoint) for operators and orchestrators.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/videogen/streamworker/internal/config"
	"github.com/videogen/streamworker/internal/logging"
)

func main() {
	cmd := &cli.Command{
		Name:  "worker",
		Usage: "durable Redis-stream consumer for videogen jobs",
		Commands: []*cli.Command{
			runCommand(),
			statusCommand(),
			healthCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger, logErr := logging.NewFromEnv()
		if logErr != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
