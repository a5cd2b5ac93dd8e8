// Package health adapts the teacher's zero-allocation health.Monitor
// (atomics only, no I/O on the hot path) from tracking signing activity
// to tracking dispatch-loop activity and consecutive per-entry
// failures, so a stuck poison-pill entry can flip the worker unhealthy
// even while the loop itself keeps spinning.
package health

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Monitor tracks worker health with minimal overhead.
type Monitor struct {
	lastActivity       atomic.Int64  // Unix timestamp of last dispatch activity
	dispatchCount      atomic.Uint64 // Total entries dispatched
	consecutiveFailures atomic.Int64 // Consecutive per-entry dispatch failures
	goroutineLimit     int           // Max allowed goroutines (0 = no limit)
	maxConsecutiveFail int64         // Consecutive failures before unhealthy (0 = no limit)
}

// NewMonitor creates a new health monitor. goroutineLimit is the max
// allowed goroutine count (0 = no limit); maxConsecutiveFail is the
// number of consecutive dispatch failures that flips IsHealthy false
// (0 = no limit).
func NewMonitor(goroutineLimit int, maxConsecutiveFail int64) *Monitor {
	m := &Monitor{
		goroutineLimit:     goroutineLimit,
		maxConsecutiveFail: maxConsecutiveFail,
	}
	m.lastActivity.Store(time.Now().Unix())
	return m
}

// RecordSuccess marks a dispatch cycle that advanced the cursor. Hot
// path: atomics only.
func (m *Monitor) RecordSuccess() {
	m.lastActivity.Store(time.Now().Unix())
	m.dispatchCount.Add(1)
	m.consecutiveFailures.Store(0)
}

// RecordFailure marks a dispatch cycle that broke the batch without
// advancing. Hot path: atomics only.
func (m *Monitor) RecordFailure() {
	m.lastActivity.Store(time.Now().Unix())
	m.consecutiveFailures.Add(1)
}

// LastActivity returns the time of the last recorded dispatch activity.
func (m *Monitor) LastActivity() time.Time {
	return time.Unix(m.lastActivity.Load(), 0)
}

// DispatchCount returns the total number of successful dispatch cycles.
func (m *Monitor) DispatchCount() uint64 {
	return m.dispatchCount.Load()
}

// ConsecutiveFailures returns the current consecutive-failure streak.
func (m *Monitor) ConsecutiveFailures() int64 {
	return m.consecutiveFailures.Load()
}

// SecondsSinceActivity returns seconds since last activity.
func (m *Monitor) SecondsSinceActivity() int64 {
	return time.Now().Unix() - m.lastActivity.Load()
}

// IsHealthy performs health checks. Not on the hot path; call from a
// background goroutine or an HTTP handler.
func (m *Monitor) IsHealthy() bool {
	if m.goroutineLimit > 0 && runtime.NumGoroutine() > m.goroutineLimit {
		return false
	}
	if m.maxConsecutiveFail > 0 && m.consecutiveFailures.Load() >= m.maxConsecutiveFail {
		return false
	}
	return true
}

// GoroutineCount returns the current number of goroutines.
func (m *Monitor) GoroutineCount() int {
	return runtime.NumGoroutine()
}
