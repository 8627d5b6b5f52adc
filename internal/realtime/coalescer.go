package realtime

import (
	"sync"
	"time"
)

// Coalescer collapses a burst of triggers into one call of fn, made once no
// trigger has arrived for the delay.
type Coalescer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

func NewCoalescer(delay time.Duration, fn func()) *Coalescer {
	return &Coalescer{delay: delay, fn: fn}
}

// Trigger (re)starts the countdown.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		fire := !c.stopped && c.gen == gen
		c.mu.Unlock()
		if fire {
			c.fn()
		}
	})
}

// Stop cancels any pending call. Later triggers are ignored.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
