// Package health owns the process readiness state machine used by the
// Kubernetes liveness and readiness probes. Liveness and readiness are
// deliberately decoupled: liveness answers "is the process alive at all",
// readiness answers "is the process currently willing to take traffic".
package health

import (
	"fmt"
	"sync/atomic"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusReady     Status = "ready"
	StatusNotReady  Status = "not_ready"
)

// State tracks the startup time and the draining flag for one process.
// The draining flag is single-writer (the signal handler) and multi-reader
// (every probe request), hence the atomic. Once set it is never cleared.
type State struct {
	startup  time.Time
	draining atomic.Bool
}

// NewState captures the startup instant. Construct once at process start.
func NewState(startup time.Time) *State {
	return &State{startup: startup}
}

// MarkDraining flips the state to draining. Idempotent; safe to call from a
// signal handler concurrently with probe reads. There is no way back.
func (s *State) MarkDraining() {
	s.draining.Store(true)
}

// Draining reports whether a shutdown signal has been observed.
func (s *State) Draining() bool {
	return s.draining.Load()
}

// StartupTime returns the instant captured at construction.
func (s *State) StartupTime() time.Time {
	return s.startup
}

// Uptime computes elapsed wall time since startup. Negative values indicate
// clock regression and are reported as-is so callers can flag them.
func (s *State) Uptime(now time.Time) time.Duration {
	return now.Sub(s.startup)
}

// Liveness is the outcome of a liveness check.
type Liveness struct {
	Status Status
	Uptime time.Duration
	Err    error
}

// CheckLiveness reports unhealthy only when uptime computes negative, which
// is a wall clock sanity check rather than a true liveness probe. The
// draining flag does not affect liveness: a draining process is still alive.
func (s *State) CheckLiveness(now time.Time) Liveness {
	uptime := s.Uptime(now)
	if uptime < 0 {
		return Liveness{
			Status: StatusUnhealthy,
			Uptime: uptime,
			Err:    fmt.Errorf("invalid uptime calculation: %s", uptime),
		}
	}
	return Liveness{Status: StatusHealthy, Uptime: uptime}
}

// Readiness is the outcome of a readiness check.
type Readiness struct {
	Status Status
	Reason string
	Uptime time.Duration
}

// CheckReadiness gates traffic on two conditions: the process must not be
// draining, and it must have been up for at least minUptime. The grace
// period is a blunt proxy for warm-up, not a real dependency check.
func (s *State) CheckReadiness(now time.Time, minUptime time.Duration) Readiness {
	uptime := s.Uptime(now)
	if s.draining.Load() {
		return Readiness{
			Status: StatusNotReady,
			Reason: "application shutting down, not accepting traffic",
			Uptime: uptime,
		}
	}
	if uptime < minUptime {
		return Readiness{
			Status: StatusNotReady,
			Reason: fmt.Sprintf("minimum uptime not reached (%.1fs < %.0fs)",
				uptime.Seconds(), minUptime.Seconds()),
			Uptime: uptime,
		}
	}
	return Readiness{Status: StatusReady, Uptime: uptime}
}
