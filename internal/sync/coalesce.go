package sync

import (
	stdsync "sync"
	"time"

	"github.com/huverse/AstraLinks-sub001/internal/session"
)

// DefaultCoalesceWindow is how long a Coalescer waits after the first event
// of a burst before flushing the batch.
const DefaultCoalesceWindow = 50 * time.Millisecond

// Coalescer buffers inbound events and delivers each burst as one ordered
// batch. The first Add of an empty buffer arms the flush timer; everything
// added before it fires ships in the same batch, in arrival order.
type Coalescer struct {
	mu      stdsync.Mutex
	window  time.Duration
	deliver func([]session.WorldEvent)
	buf     []session.WorldEvent
	timer   *time.Timer
	stopped bool
}

// NewCoalescer returns a coalescer that calls deliver with each flushed
// batch. A non-positive window falls back to DefaultCoalesceWindow.
func NewCoalescer(window time.Duration, deliver func([]session.WorldEvent)) *Coalescer {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &Coalescer{window: window, deliver: deliver}
}

// Add queues one event for the next flush. Events added after Stop are
// dropped.
func (c *Coalescer) Add(evt session.WorldEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.buf = append(c.buf, evt)
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.flush)
	}
}

// Flush delivers any buffered events immediately instead of waiting for the
// window timer.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.flush()
}

// Stop discards buffered events and silences any in-flight timer. A flush
// that already fired when its consumer tore down becomes a no-op.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.buf = nil
}

func (c *Coalescer) flush() {
	c.mu.Lock()
	batch := c.buf
	deliver := c.deliver
	stopped := c.stopped
	c.buf = nil
	c.timer = nil
	c.mu.Unlock()
	if stopped || deliver == nil || len(batch) == 0 {
		return
	}
	deliver(batch)
}
