package sync

import (
	"context"
	"errors"
	"log"
	stdsync "sync"
	"time"

	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/storage"
)

// recorderQueueSize bounds how many journal writes may be outstanding before
// new entries are dropped (and logged) instead of stalling delivery.
const recorderQueueSize = 256

// Recorder is an Observer that journals everything a client accepts, so
// sessions can be replayed offline later. Writes happen on a recorder-owned
// goroutine, keeping the observer callbacks non-blocking; store failures are
// logged, never propagated.
//
// Close drains queued writes. Detach the recorder from the client first.
type Recorder struct {
	store   storage.JournalStore
	logger  *log.Logger
	timeout time.Duration

	mu     stdsync.Mutex
	closed bool
	jobs   chan func(context.Context)
	done   chan struct{}
}

var _ Observer = (*Recorder)(nil)

func NewRecorder(store storage.JournalStore, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	r := &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		jobs:    make(chan func(context.Context), recorderQueueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Close stops accepting new entries and waits for queued writes to land.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for job := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		job(ctx)
		cancel()
	}
}

func (r *Recorder) enqueue(job func(context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Print("recorder: closed, dropping journal entry")
		return
	}
	select {
	case r.jobs <- job:
	default:
		r.logger.Print("recorder: journal queue full, dropping entry")
	}
}

func (r *Recorder) ConnectionStateChanged(state ConnState, attempt int) {}

func (r *Recorder) EventsReceived(events []session.WorldEvent) {
	batch := make([]session.WorldEvent, len(events))
	copy(batch, events)
	r.enqueue(func(ctx context.Context) {
		for _, evt := range batch {
			if err := r.store.AppendEvent(ctx, evt); err != nil {
				r.logger.Printf("recorder: append event %s: %v", evt.ID, err)
			}
		}
	})
}

func (r *Recorder) SnapshotReceived(snap session.StateSnapshot) {
	r.enqueue(func(ctx context.Context) {
		if err := r.store.PutSnapshot(ctx, snap); err != nil {
			r.logger.Printf("recorder: put snapshot for %s: %v", snap.SessionID, err)
		}
	})
}

func (r *Recorder) SessionEnded(sessionID, reason string) {
	r.enqueue(func(ctx context.Context) {
		snap, err := r.store.GetSnapshot(ctx, sessionID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Printf("recorder: load snapshot for %s: %v", sessionID, err)
			return
		}
		snap.SessionID = sessionID
		snap.IsTerminated = true
		snap.TerminationReason = reason
		if err := r.store.PutSnapshot(ctx, snap); err != nil {
			r.logger.Printf("recorder: mark %s terminated: %v", sessionID, err)
		}
	})
}

func (r *Recorder) ErrorOccurred(err error) {
	r.logger.Printf("recorder: client error: %v", err)
}
