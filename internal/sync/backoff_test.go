package sync

import (
	"testing"
	"time"
)

func TestReconnectScheduleDoublesUntilCapped(t *testing.T) {
	s := newReconnectSchedule(time.Second, time.Minute, 8)

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		32000 * time.Millisecond,
		60000 * time.Millisecond,
		60000 * time.Millisecond,
	}
	for i, expected := range want {
		delay, ok := s.next()
		if !ok {
			t.Fatalf("attempt %d: schedule exhausted early", i+1)
		}
		if delay != expected {
			t.Fatalf("attempt %d: delay = %v, want %v", i+1, delay, expected)
		}
		if s.attempt() != i+1 {
			t.Fatalf("attempt counter = %d, want %d", s.attempt(), i+1)
		}
	}

	if _, ok := s.next(); ok {
		t.Fatal("expected schedule exhausted after ceiling")
	}
}

func TestReconnectScheduleReset(t *testing.T) {
	s := newReconnectSchedule(time.Second, time.Minute, 2)
	s.next()
	s.next()
	if _, ok := s.next(); ok {
		t.Fatal("expected exhaustion before reset")
	}

	s.reset()
	delay, ok := s.next()
	if !ok {
		t.Fatal("expected schedule usable after reset")
	}
	if delay != time.Second {
		t.Fatalf("delay after reset = %v, want %v", delay, time.Second)
	}
	if s.attempt() != 1 {
		t.Fatalf("attempt after reset = %d, want 1", s.attempt())
	}
}
