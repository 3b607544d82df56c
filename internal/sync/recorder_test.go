package sync

import (
	"context"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/storage"
	"github.com/huverse/AstraLinks-sub001/internal/storage/sqlite"
)

func TestRecorderJournalsEventsAndSnapshots(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	rec := NewRecorder(store, nil)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	rec.EventsReceived([]session.WorldEvent{
		{ID: "e1", SessionID: "sess-1", Type: session.EventRoundStart, Sequence: 1, Timestamp: base},
		{ID: "e2", SessionID: "sess-1", Type: session.EventAgentSpeak, Sequence: 2, Timestamp: base.Add(time.Second),
			Payload: map[string]any{"speaker": "a1"}},
	})
	rec.SnapshotReceived(session.StateSnapshot{
		SessionID:  "sess-1",
		WorldState: map[string]any{"topic": "alignment"},
		Tick:       2,
	})
	// Duplicate delivery must not double-journal.
	rec.EventsReceived([]session.WorldEvent{
		{ID: "e2", SessionID: "sess-1", Type: session.EventAgentSpeak, Sequence: 2, Timestamp: base.Add(time.Second)},
	})
	rec.SessionEnded("sess-1", "moderator_stop")
	rec.Close()

	ctx := context.Background()
	events, err := store.ListEvents(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("journal holds %d events, want 2", len(events))
	}
	if events[0].ID != "e1" || events[1].ID != "e2" {
		t.Fatalf("journal order = %s, %s", events[0].ID, events[1].ID)
	}

	snap, err := store.GetSnapshot(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !snap.IsTerminated || snap.TerminationReason != "moderator_stop" {
		t.Fatalf("snapshot = %+v, want terminated by moderator_stop", snap)
	}
	if snap.WorldState["topic"] != "alignment" {
		t.Fatalf("termination clobbered world state: %+v", snap.WorldState)
	}
}

// slowStore stalls every write, standing in for a journal on contended disk.
type slowStore struct {
	delay time.Duration

	mu       stdsync.Mutex
	appended int
}

func (s *slowStore) AppendEvent(ctx context.Context, evt session.WorldEvent) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.appended++
	s.mu.Unlock()
	return nil
}

func (s *slowStore) ListEvents(ctx context.Context, sessionID string) ([]session.WorldEvent, error) {
	return nil, nil
}

func (s *slowStore) PutSnapshot(ctx context.Context, snap session.StateSnapshot) error {
	time.Sleep(s.delay)
	return nil
}

func (s *slowStore) GetSnapshot(ctx context.Context, sessionID string) (session.StateSnapshot, error) {
	return session.StateSnapshot{}, storage.ErrNotFound
}

func (s *slowStore) ListSessionIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestRecorderCallbacksDoNotBlockOnSlowStore(t *testing.T) {
	store := &slowStore{delay: 200 * time.Millisecond}
	rec := NewRecorder(store, nil)

	start := time.Now()
	rec.EventsReceived([]session.WorldEvent{{ID: "e1", SessionID: "sess-1"}})
	rec.EventsReceived([]session.WorldEvent{{ID: "e2", SessionID: "sess-1"}})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("delivery callbacks took %v, writes are blocking the caller", elapsed)
	}

	rec.Close()
	store.mu.Lock()
	appended := store.appended
	store.mu.Unlock()
	if appended != 2 {
		t.Fatalf("Close drained %d writes, want 2", appended)
	}
}
