package util

import (
	"sync"
	"time"
)

// Debouncer resets a timer whenever Reset is called, useful for idle
// detection on streams with irregular traffic. It is thread-safe.
//
// Example usage:
//
//	watchdog := NewDebouncer(idleTimeout)
//	defer watchdog.Stop()
//
//	for {
//	    select {
//	    case <-frameSeen:
//	        watchdog.Reset() // traffic seen, push the deadline out
//	    case <-watchdog.C():
//	        return fmt.Errorf("no traffic for %s", idleTimeout)
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	stopped  bool
}

// NewDebouncer creates a debouncer that fires after duration unless Reset.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		timer:    time.NewTimer(duration),
	}
}

// Reset pushes the deadline out by the debouncer's duration. No-op once
// stopped.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	// Drain a fired-but-unread timer before resetting, per time.Timer rules.
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
	d.timer.Reset(d.duration)
}

// C returns the channel that receives when the deadline passes.
func (d *Debouncer) C() <-chan time.Time {
	return d.timer.C
}

// Stop stops the debouncer and prevents further resets. Safe to call more
// than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.stopped {
		d.timer.Stop()
		d.stopped = true
	}
}
