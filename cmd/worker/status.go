package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/videogen/streamworker/internal/config"
	"github.com/videogen/streamworker/internal/statusview"
)

// Styling repurposed from the teacher's key lock-state status table
// (app/host/styles.go: renderStatusTable/chipStyle) to job-queue rows.
var (
	borderColor = lipgloss.AdaptiveColor{Light: "#6C6CFF", Dark: "#6C6CFF"}
	okColor     = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#9FF29A"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#8B6F00", Dark: "#F2D06B"}
	errColor    = lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#FF6B6B"}

	baseCell    = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(okColor).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(errColor).Bold(true)
)

const statusFlagWatch = "watch"

func statusCommand() *cli.Command {
	flags := append(config.Flags(), &cli.BoolFlag{
		Name:  statusFlagWatch,
		Usage: "keep the table on screen, refreshing every few seconds",
	})

	return &cli.Command{
		Name:  "status",
		Usage: "print a point-in-time snapshot of cursor position and job counts",
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

			if cmd.Bool(statusFlagWatch) {
				return runStatusWatch(ctx, client, cfg.JobsStream)
			}

			snap, err := statusview.Collect(ctx, client, cfg.JobsStream, time.Now())
			if err != nil {
				return fmt.Errorf("collecting status: %w", err)
			}

			fmt.Println(renderStatusTable(snap))
			return nil
		},
	}
}

func renderStatusTable(snap statusview.Snapshot) string {
	labels := []string{"cursor", "stream length", "processing", "completed", "failed"}
	values := []string{
		fallback(snap.Cursor, "(none)"),
		fmt.Sprintf("%d", snap.StreamLen),
		countChip(snap.ProcessingJobs, warnStyle),
		countChip(snap.CompletedJobs, okStyle),
		countChip(snap.FailedJobs, errStyle),
	}

	rows := lo.Map(labels, func(label string, i int) []string {
		return []string{label, values[i]}
	})

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		width = 80
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headerStyle.Render("field"), headerStyle.Render("value")).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return baseCell
		}).
		Width(width)

	return t.Render()
}

func countChip(n int, style lipgloss.Style) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprintf("%d", n))
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
