// Package throttle provides explicit, timestamp-driven rate limiting for
// event-loop entry points, and a channel debouncer for background event
// sources such as file watchers.
package throttle

import (
	"sync"
	"time"
)

// Throttle lets the first call in a window through and drops the rest.
// A zero window lets every call through.
type Throttle struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
	ran  bool
}

// New creates a throttle with the given window.
func New(window time.Duration) *Throttle {
	return &Throttle{window: window, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}

// Window returns the throttle window.
func (t *Throttle) Window() time.Duration { return t.window }

// Allow reports whether a call may run now and, if so, starts a new window.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.window <= 0 {
		return true
	}
	now := t.now()
	if t.ran && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	t.ran = true
	return true
}

// Do runs fn if the throttle allows it and reports whether it ran.
func (t *Throttle) Do(fn func()) bool {
	if !t.Allow() {
		return false
	}
	fn()
	return true
}

// Reset forgets the current window.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ran = false
}

// Coalescer holds the latest of a burst of calls until the burst has been
// quiet for the window. Callers poll Due from their event loop; nothing runs
// in the background.
type Coalescer[T any] struct {
	window time.Duration

	pending bool
	value   T
	at      time.Time
}

// NewCoalescer creates a coalescer with the given quiet window.
func NewCoalescer[T any](window time.Duration) *Coalescer[T] {
	return &Coalescer[T]{window: window}
}

// Touch records v as the pending call at time now, replacing any earlier
// pending call.
func (c *Coalescer[T]) Touch(v T, now time.Time) {
	c.value = v
	c.at = now
	c.pending = true
}

// Due returns the pending value once the window has passed since the last
// Touch. The value is consumed.
func (c *Coalescer[T]) Due(now time.Time) (T, bool) {
	var zero T
	if !c.pending || now.Sub(c.at) < c.window {
		return zero, false
	}
	v := c.value
	c.pending = false
	c.value = zero
	return v, true
}

// Pending reports whether a call is waiting.
func (c *Coalescer[T]) Pending() bool { return c.pending }

// Drop discards the pending call.
func (c *Coalescer[T]) Drop() {
	var zero T
	c.pending = false
	c.value = zero
}
