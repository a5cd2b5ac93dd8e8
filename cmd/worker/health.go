package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/videogen/streamworker/internal/config"
	"github.com/videogen/streamworker/internal/health"
)

const healthFlagListenAddr = "listen-addr"

// Pinger is the narrow seam the readiness check needs from a redis client.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// healthCommand starts a minimal HTTP server for container
// orchestrators, grounded on the teacher's buildFiberApp
// (app/host/http.go: recover/logger middleware, fiber.Map JSON bodies)
// repurposed from signing endpoints to liveness/readiness endpoints.
func healthCommand() *cli.Command {
	flags := append(config.Flags(), &cli.StringFlag{
		Name:    healthFlagListenAddr,
		Sources: cli.EnvVars("HEALTH_LISTEN_ADDR"),
		Value:   ":8080",
		Usage:   "address the health HTTP server listens on",
	})

	return &cli.Command{
		Name:  "health",
		Usage: "run a /healthz and /readyz HTTP server for orchestrators",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			client := redis.NewClient(opt)
			defer client.Close()

			monitor := health.NewMonitor(0, 0)
			app := buildHealthApp(client, monitor)

			return app.Listen(cmd.String(healthFlagListenAddr))
		},
	}
}

func buildHealthApp(client Pinger, monitor *health.Monitor) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${method} ${path} ${status} ${latency}\n",
	}))
	app.Use(func(c *fiber.Ctx) error {
		c.Path(path.Clean(c.Path()))
		return c.Next()
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if !monitor.IsHealthy() {
			monitor.RecordFailure()
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		monitor.RecordSuccess()
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		if err := client.Ping(c.Context()).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "broker unreachable", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	return app
}
