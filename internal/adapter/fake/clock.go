package fake

import (
	"sync"
	"time"

	"dockmon/internal/collect"
)

var _ collect.Clock = (*Clock)(nil)

// Clock is a deterministic clock for testing.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a Clock starting at the given time.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time, then advances it by the configured
// step so consecutive reads measure a nonzero duration.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// AutoAdvance makes every Now call move the clock forward by d.
func (c *Clock) AutoAdvance(d time.Duration) {
	c.mu.Lock()
	c.step = d
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set sets the clock to an exact time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
