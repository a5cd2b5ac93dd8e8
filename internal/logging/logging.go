// Package logging builds the worker's structured logger from the
// environment. The teacher's broker.New calls logging.NewFromEnv() but
// the package itself was never part of the retrieved pack — this rebuilds
// it from that call site's contract, using the teacher's direct
// lumberjack dependency for rotation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFromEnv builds a *slog.Logger from LOG_LEVEL, LOG_FORMAT, and
// LOG_FILE. Defaults: info level, JSON format unless stderr is a TTY and
// LOG_FILE is unset (in which case text), stderr output unless LOG_FILE
// is set.
func NewFromEnv() (*slog.Logger, error) {
	level, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	var writer io.Writer = os.Stderr
	isTerminal := term.IsTerminal(os.Stderr.Fd())

	if path := os.Getenv("LOG_FILE"); path != "" {
		writer = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		isTerminal = false
	}

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "" {
		if isTerminal {
			format = "text"
		} else {
			format = "json"
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("logging: unknown LOG_FORMAT %q", format)
	}

	return slog.New(handler), nil
}

func parseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(v) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown LOG_LEVEL %q", v)
	}
}
