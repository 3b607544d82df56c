package sync

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// reconnectSchedule produces the delay before each reconnect attempt:
// min(initial * 2^n, max), without jitter, up to a hard attempt ceiling.
type reconnectSchedule struct {
	eb       *backoff.ExponentialBackOff
	attempts int
	ceiling  int
}

func newReconnectSchedule(initial, max time.Duration, ceiling int) *reconnectSchedule {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = max
	eb.Reset()
	return &reconnectSchedule{eb: eb, ceiling: ceiling}
}

// next returns the delay before the upcoming attempt, or false once the
// ceiling is exhausted.
func (s *reconnectSchedule) next() (time.Duration, bool) {
	if s.attempts >= s.ceiling {
		return 0, false
	}
	s.attempts++
	return s.eb.NextBackOff(), true
}

// attempt is the 1-based number of the attempt most recently scheduled.
func (s *reconnectSchedule) attempt() int {
	return s.attempts
}

func (s *reconnectSchedule) reset() {
	s.attempts = 0
	s.eb.Reset()
}
