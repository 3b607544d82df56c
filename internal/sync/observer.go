package sync

import "github.com/huverse/AstraLinks-sub001/internal/session"

// Observer receives connection and session notifications from a Client.
// Callbacks run on client-internal goroutines and must not block or call
// back into the client.
type Observer interface {
	ConnectionStateChanged(state ConnState, attempt int)
	EventsReceived(events []session.WorldEvent)
	SnapshotReceived(snap session.StateSnapshot)
	SessionEnded(sessionID, reason string)
	ErrorOccurred(err error)
}

// ObserverFuncs adapts free functions to the Observer interface. Nil fields
// are skipped.
type ObserverFuncs struct {
	OnConnectionState func(state ConnState, attempt int)
	OnEvents          func(events []session.WorldEvent)
	OnSnapshot        func(snap session.StateSnapshot)
	OnSessionEnded    func(sessionID, reason string)
	OnError           func(err error)
}

func (f ObserverFuncs) ConnectionStateChanged(state ConnState, attempt int) {
	if f.OnConnectionState != nil {
		f.OnConnectionState(state, attempt)
	}
}

func (f ObserverFuncs) EventsReceived(events []session.WorldEvent) {
	if f.OnEvents != nil {
		f.OnEvents(events)
	}
}

func (f ObserverFuncs) SnapshotReceived(snap session.StateSnapshot) {
	if f.OnSnapshot != nil {
		f.OnSnapshot(snap)
	}
}

func (f ObserverFuncs) SessionEnded(sessionID, reason string) {
	if f.OnSessionEnded != nil {
		f.OnSessionEnded(sessionID, reason)
	}
}

func (f ObserverFuncs) ErrorOccurred(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}
