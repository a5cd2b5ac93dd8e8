// Package streamio blocks on the broker for new stream entries and
// reconnects with backoff when the connection drops. It wraps go-redis's
// raw Do() path rather than the typed XReadArgs helper, so the nested
// reply this worker receives is the same untyped shape internal/wire was
// built to pattern-inspect.
package streamio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/videogen/streamworker/internal/wire"
)

// Doer is the minimal surface Reader and Supervisor need from a redis
// client: issue a raw command and get back the untyped reply tree.
// Narrowed from *redis.Client the same way the teacher narrows broker
// transport down to ReadContexter/WriteContexter, so tests substitute an
// in-memory fake instead of a real broker connection.
type Doer interface {
	Do(ctx context.Context, args ...interface{}) *redis.Cmd
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	backoffFactor  = 2
	maxAttempts    = 8
)

// ErrReconnectExhausted is returned when the Supervisor could not obtain a
// healthy connection within maxAttempts.
var ErrReconnectExhausted = errors.New("streamio: reconnect attempts exhausted")

// Dialer opens a fresh broker connection. In production this wraps
// redis.NewClient(opts); tests supply a fake that hands back an in-memory
// Doer instead.
type Dialer func(ctx context.Context) (Doer, error)

// Supervisor owns the live connection and the reconnect-with-backoff
// policy shared by every broker operation (spec.md §4.7). Modeled on the
// teacher's readLoop/writerLoop backoff state machine (broker.go), but
// returns a typed error to the caller instead of silently exiting a
// goroutine, since this worker has a single cooperative loop rather than
// always-on reader/writer goroutines.
type Supervisor struct {
	dial   Dialer
	logger *slog.Logger

	conn Doer
}

func NewSupervisor(dial Dialer, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{dial: dial, logger: logger}
}

// Conn returns the current connection, dialing one if none is held yet.
func (s *Supervisor) Conn(ctx context.Context) (Doer, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	return s.Reconnect(ctx)
}

// Reconnect drops the current connection (if any) and establishes a new
// one, retrying with exponential backoff: 200ms, doubling, capped at 5s,
// up to 8 attempts before giving up.
func (s *Supervisor) Reconnect(ctx context.Context) (Doer, error) {
	s.conn = nil
	backoff := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := s.dial(ctx)
		if err == nil {
			s.conn = conn
			return conn, nil
		}
		lastErr = err

		s.logger.Warn("broker reconnect attempt failed",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("err", err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		backoff *= backoffFactor
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, fmt.Errorf("%w: last error: %v", ErrReconnectExhausted, lastErr)
}

// IsTransportError reports whether err indicates the broker connection
// itself is unusable (as opposed to, say, a well-formed RESP error reply),
// meaning the Supervisor should be consulted before retrying.
func IsTransportError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// Reader issues the blocking read-after-cursor command and decodes its
// reply through internal/wire.
type Reader struct {
	sup    *Supervisor
	stream string
	logger *slog.Logger
}

func NewReader(sup *Supervisor, stream string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{sup: sup, stream: stream, logger: logger}
}

// ReadBatch issues `XREAD COUNT count BLOCK blockMS STREAMS stream cursor`,
// the literal "read after ID" form spec.md §4.2 requires — never the `$`
// new-only shorthand, which would lose entries that arrived while this
// worker was offline. An empty result on timeout is returned as (nil, nil).
func (r *Reader) ReadBatch(ctx context.Context, cursor string, count int, blockMS int) ([]wire.Entry, error) {
	conn, err := r.sup.Conn(ctx)
	if err != nil {
		return nil, err
	}

	cmd := conn.Do(ctx, "XREAD",
		"COUNT", count,
		"BLOCK", blockMS,
		"STREAMS", r.stream, cursor,
	)
	reply, err := cmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if IsTransportError(err) {
			if _, rErr := r.sup.Reconnect(ctx); rErr != nil {
				return nil, fmt.Errorf("reconnect after transport error %q: %w", err, rErr)
			}
		}
		return nil, err
	}

	return wire.Decode(wire.Of(reply)), nil
}
