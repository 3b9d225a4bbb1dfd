// Package synclock implements the Single-flight Lock (§4.E): a non-blocking
// busy/idle gate around the sync cycle, with a watchdog that auto-recovers
// a lock stuck busy past a timeout.
//
// Grounded on original_source/youspotter/sync_lock.py (sync_lock,
// is_sync_running) for the acquire/release/auto-recover semantics, adapted
// from its module-level globals into a struct so multiple daemons (or
// tests) don't share state.
package synclock

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Timeout is how long a sync may stay marked busy before the watchdog
// forces it back to idle, per §4.E's 30-minute auto-recovery window.
const Timeout = 30 * time.Minute

// Lock is a single-flight gate: at most one sync cycle may hold it at a
// time, and [Lock.Try] never blocks.
type Lock struct {
	mu        sync.Mutex
	busy      bool
	busySince time.Time
	logger    *log.Logger
}

// New creates an idle lock.
func New(logger *log.Logger) *Lock {
	return &Lock{logger: logger}
}

// Release returns the lock to idle. Call it via defer from the holder of a
// successful [Lock.Try].
type Release func()

// Try attempts to acquire the lock without blocking. ok is false if a sync
// is already running and has not yet timed out. When ok is true, the caller
// must call the returned release func exactly once when the sync cycle
// finishes. A lock held past [Timeout] (a hung or panicked cycle whose
// deferred release never ran) is auto-recovered here, since Try is the one
// path every caller (scheduler and manual trigger alike) always goes
// through, unlike [Lock.Busy] which nothing in production calls.
func (l *Lock) Try() (release Release, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy {
		if l.busySince.IsZero() || time.Since(l.busySince) <= Timeout {
			return nil, false
		}
		if l.logger != nil {
			l.logger.Warn("sync lock timed out, auto-recovering", "heldFor", time.Since(l.busySince))
		}
	}
	l.busy = true
	l.busySince = time.Now()
	return l.release, true
}

func (l *Lock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = false
	l.busySince = time.Time{}
}

// Busy reports whether a sync is currently running, auto-recovering (and
// logging a warning) a lock that has been held longer than [Timeout]. Try
// performs the same recovery inline, so Busy is only needed by a caller that
// wants to observe lock state without acquiring it.
func (l *Lock) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.busy {
		return false
	}
	if !l.busySince.IsZero() && time.Since(l.busySince) > Timeout {
		if l.logger != nil {
			l.logger.Warn("sync lock timed out, auto-recovering", "heldFor", time.Since(l.busySince))
		}
		l.busy = false
		l.busySince = time.Time{}
		return false
	}
	return true
}

// BusySince reports when the current sync started, or the zero time if
// idle.
func (l *Lock) BusySince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busySince
}
