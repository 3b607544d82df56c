// Package storage defines persistence interfaces for recorded sessions.
//
// A journal is the durable form of a session: every accepted WorldEvent in
// sequence order plus the latest StateSnapshot. Replaying a journal through
// the reducer reconstructs exactly the state the live client displayed.
package storage

import (
	"context"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
	"github.com/huverse/AstraLinks-sub001/internal/session"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// JournalStore persists accepted session events and snapshots.
type JournalStore interface {
	// AppendEvent records one accepted event. Re-appending an event with an
	// id already present in the journal is a no-op, so duplicate delivery
	// never corrupts a recording.
	AppendEvent(ctx context.Context, evt session.WorldEvent) error
	// ListEvents returns the full recorded log for a session in sequence order.
	ListEvents(ctx context.Context, sessionID string) ([]session.WorldEvent, error)
	// PutSnapshot stores the latest full-state fact for a session.
	PutSnapshot(ctx context.Context, snap session.StateSnapshot) error
	// GetSnapshot returns the stored snapshot, or ErrNotFound.
	GetSnapshot(ctx context.Context, sessionID string) (session.StateSnapshot, error)
	// ListSessionIDs returns the ids of all recorded sessions.
	ListSessionIDs(ctx context.Context) ([]string, error)
}
