package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source of every service. Timestamps are UTC so that
// due dates and payout periods do not depend on the host zone.
type Clock interface {
	Now(ctx context.Context) time.Time
}

type SystemClock struct{}

func (SystemClock) Now(context.Context) time.Time {
	return time.Now().UTC()
}

// FixedClock returns a settable instant.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *FixedClock {
	return &FixedClock{t: t.UTC()}
}

func (c *FixedClock) Now(context.Context) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
