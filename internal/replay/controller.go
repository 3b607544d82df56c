// Package replay drives the session reducer over a recorded event log with
// play, pause, seek, and speed controls. It operates on a finite ordered
// event slice, never a live stream.
package replay

import (
	"sync"
	"time"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/session/reduce"
)

// Speeds lists the supported playback multipliers.
var Speeds = []float64{0.5, 1, 1.5, 2, 4}

// StepFunc observes playback: it receives the state after each applied event
// and the index of that event.
type StepFunc func(state session.Session, index int)

// Option configures a Controller.
type Option func(*Controller)

// WithStepFunc registers a playback observer.
func WithStepFunc(fn StepFunc) Option {
	return func(c *Controller) { c.onStep = fn }
}

// Controller replays a recorded event sequence through the session reducer.
// The zero index state is "nothing applied yet"; Index reports -1 until the
// first event is applied.
type Controller struct {
	mu       sync.Mutex
	events   []session.WorldEvent
	state    session.Session
	index    int
	playing  bool
	speed    float64
	timer    *time.Timer
	timerGen int
	tickBase time.Duration
	onStep   StepFunc
}

// New creates a controller over a finite, ordered event log.
func New(events []session.WorldEvent, opts ...Option) *Controller {
	owned := make([]session.WorldEvent, len(events))
	copy(owned, events)
	c := &Controller{
		events:   owned,
		index:    -1,
		speed:    1,
		tickBase: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play starts advancing one event per tick at 1000ms divided by speed.
// Playing past the last event stops automatically. Play on an exhausted or
// empty log is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing || len(c.events) == 0 || c.index >= len(c.events)-1 {
		return
	}
	c.playing = true
	c.schedule()
}

// Pause stops playback, keeping the current index.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimer()
	c.playing = false
}

// Seek jumps to event index i, clamped to the log bounds, and re-derives the
// displayed state by folding events [0..i] from an empty initial state.
// Backward seeks therefore need no inverse transitions.
func (c *Controller) Seek(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(c.events)-1 {
		i = len(c.events) - 1
	}
	c.index = i
	c.state = reduce.Fold(c.events[:i+1])
	c.notify()
}

// SetSpeed switches the playback multiplier. While playing, the tick timer is
// torn down and restarted at the new interval without losing the index.
func (c *Controller) SetSpeed(speed float64) error {
	valid := false
	for _, s := range Speeds {
		if s == speed {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.New(apperrors.CodeReplayInvalidSpeed, "unsupported playback speed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	if c.playing {
		c.stopTimer()
		c.schedule()
	}
	return nil
}

// State returns the derived session state at the current index.
func (c *Controller) State() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the index of the last applied event, or -1.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// IsPlaying reports whether the tick timer is running.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Speed returns the current playback multiplier.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Progress returns playback completion as a percentage of the log.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return 0
	}
	return float64(c.index+1) / float64(len(c.events)) * 100
}

// Elapsed returns discussion time covered so far, computed from event
// timestamp deltas rather than wall-clock playback time, so pausing does not
// distort the displayed duration.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || len(c.events) == 0 {
		return 0
	}
	d := c.events[c.index].Timestamp.Sub(c.events[0].Timestamp)
	if d < 0 {
		return 0
	}
	return d
}

// Total returns the discussion time spanned by the whole log.
func (c *Controller) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return 0
	}
	d := c.events[len(c.events)-1].Timestamp.Sub(c.events[0].Timestamp)
	if d < 0 {
		return 0
	}
	return d
}

// schedule arms the tick timer. Caller holds the lock. The generation tag
// lets a tick that already fired before stopTimer, and is waiting on the
// mutex, recognize that its chain was torn down.
func (c *Controller) schedule() {
	interval := time.Duration(float64(c.tickBase) / c.speed)
	gen := c.timerGen
	c.timer = time.AfterFunc(interval, func() { c.tick(gen) })
}

// stopTimer invalidates any pending tick, fired or not. Caller holds the lock.
func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) tick(gen int) {
	c.mu.Lock()
	if gen != c.timerGen || !c.playing {
		c.mu.Unlock()
		return
	}
	c.advance()
	if c.index >= len(c.events)-1 {
		c.stopTimer()
		c.playing = false
	} else {
		c.schedule()
	}
	c.mu.Unlock()
}

// advance applies the next event. Caller holds the lock.
func (c *Controller) advance() {
	if c.index >= len(c.events)-1 {
		return
	}
	c.index++
	c.state = reduce.Apply(c.state, c.events[c.index])
	c.notify()
}

// notify invokes the step observer. Caller holds the lock; the callback must
// not call back into the controller.
func (c *Controller) notify() {
	if c.onStep != nil {
		c.onStep(c.state, c.index)
	}
}
