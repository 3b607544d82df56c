package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/huverse/AstraLinks-sub001/internal/session"
)

func TestCoalescerDeliversBurstAsOneBatch(t *testing.T) {
	batches := make(chan []session.WorldEvent, 4)
	c := NewCoalescer(20*time.Millisecond, func(batch []session.WorldEvent) {
		batches <- batch
	})

	for i := 0; i < 10; i++ {
		c.Add(session.WorldEvent{ID: fmt.Sprintf("evt-%d", i), Type: session.EventAgentSpeak})
	}

	var batch []session.WorldEvent
	select {
	case batch = <-batches:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch")
	}
	if len(batch) != 10 {
		t.Fatalf("batch size = %d, want 10", len(batch))
	}
	for i, evt := range batch {
		if want := fmt.Sprintf("evt-%d", i); evt.ID != want {
			t.Fatalf("batch[%d].ID = %q, want %q", i, evt.ID, want)
		}
	}

	select {
	case extra := <-batches:
		t.Fatalf("unexpected second batch of %d events", len(extra))
	case <-time.After(60 * time.Millisecond):
	}
}

func TestCoalescerSeparateBurstsSeparateBatches(t *testing.T) {
	batches := make(chan []session.WorldEvent, 4)
	c := NewCoalescer(10*time.Millisecond, func(batch []session.WorldEvent) {
		batches <- batch
	})

	c.Add(session.WorldEvent{ID: "a"})
	first := <-batches
	c.Add(session.WorldEvent{ID: "b"})
	second := <-batches

	if len(first) != 1 || first[0].ID != "a" {
		t.Fatalf("first batch = %+v, want single event a", first)
	}
	if len(second) != 1 || second[0].ID != "b" {
		t.Fatalf("second batch = %+v, want single event b", second)
	}
}

func TestCoalescerFlushDeliversImmediately(t *testing.T) {
	batches := make(chan []session.WorldEvent, 1)
	c := NewCoalescer(time.Hour, func(batch []session.WorldEvent) {
		batches <- batch
	})

	c.Add(session.WorldEvent{ID: "a"})
	c.Add(session.WorldEvent{ID: "b"})
	c.Flush()

	select {
	case batch := <-batches:
		if len(batch) != 2 {
			t.Fatalf("batch size = %d, want 2", len(batch))
		}
	case <-time.After(time.Second):
		t.Fatal("flush did not deliver")
	}
}

func TestCoalescerStopSilencesPendingFlush(t *testing.T) {
	batches := make(chan []session.WorldEvent, 1)
	c := NewCoalescer(10*time.Millisecond, func(batch []session.WorldEvent) {
		batches <- batch
	})

	c.Add(session.WorldEvent{ID: "a"})
	c.Stop()
	c.Add(session.WorldEvent{ID: "b"})
	c.Flush()

	select {
	case batch := <-batches:
		t.Fatalf("delivery after Stop: %+v", batch)
	case <-time.After(50 * time.Millisecond):
	}
}
