// Package clock provides the time source used by the reconciler.
package clock

import (
	"sync"
	"time"
)

// Clock is a minimal time source. Production code uses Real; tests use
// Simulated to control ticket cooldowns and detection windows.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time {
	return time.Now()
}

// Simulated is a manual-advance clock. It starts at the given time and
// only moves when Advance or Set is called.
type Simulated struct {
	mu      sync.Mutex
	current time.Time
}

// NewSimulated creates a simulated clock starting at start.
func NewSimulated(start time.Time) *Simulated {
	return &Simulated{current: start}
}

// Now implements Clock.
func (c *Simulated) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward. Negative durations are ignored.
func (c *Simulated) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Simulated) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
