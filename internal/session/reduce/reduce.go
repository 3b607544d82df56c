// Package reduce implements the pure state-transition function shared by the
// live synchronization path and offline replay. Applying the same event twice
// is a no-op, and out-of-order arrivals are recorded without regressing
// derived state, so the reducer tolerates duplicate and reordered delivery.
package reduce

import (
	"sort"

	"github.com/huverse/AstraLinks-sub001/internal/session"
)

// Apply returns the session state after accepting one event. The input
// session is never mutated. Unknown event types are recorded in the log with
// no further side effects; malformed payloads are absorbed, never rejected.
func Apply(s session.Session, evt session.WorldEvent) session.Session {
	next := clone(s)
	if next.ID == "" {
		next.ID = evt.SessionID
	}
	if next.HasEvent(evt.ID) {
		return next
	}

	stale := evt.Sequence > 0 && evt.Sequence < next.LastSequence()
	next.Events = insertOrdered(next.Events, evt)
	if stale {
		// A late arrival backfills the log, but agent status is derived
		// from the most recent event only.
		return next
	}

	switch evt.Type {
	case session.EventAgentSpeaking, session.EventAgentSpeak:
		speaker := evt.Speaker()
		next.Agents = upsert(next.Agents, speaker)
		for i := range next.Agents {
			if next.Agents[i].ID == speaker {
				next.Agents[i].Status = session.AgentSpeaking
				next.Agents[i].SpeakCount++
			} else {
				next.Agents[i].Status = session.AgentIdle
			}
		}
	case session.EventAgentThinking:
		speaker := evt.Speaker()
		next.Agents = upsert(next.Agents, speaker)
		for i := range next.Agents {
			if next.Agents[i].ID == speaker {
				next.Agents[i].Status = session.AgentThinking
			}
		}
	case session.EventAgentDone, session.EventTurnEnd:
		for i := range next.Agents {
			next.Agents[i].Status = session.AgentIdle
		}
	case session.EventRoundStart:
		if round, ok := evt.Round(); ok {
			next.CurrentRound = round
		} else {
			next.CurrentRound++
		}
		// A new round means the discussion is running: pending and paused
		// sessions activate, terminal ones stay put.
		if session.CanTransition(next.Status, session.StatusActive) {
			next.Status = session.StatusActive
		}
	}

	return next
}

// ApplySnapshot folds an out-of-band full-state fact into the session.
// A terminated snapshot forces completed status; a mid-flight snapshot never
// downgrades progress.
func ApplySnapshot(s session.Session, snap session.StateSnapshot) session.Session {
	next := clone(s)
	if next.ID == "" {
		next.ID = snap.SessionID
	}
	if snap.WorldState != nil {
		next.World = copyWorld(snap.WorldState)
		if topic, ok := snap.WorldState["topic"].(string); ok && topic != "" {
			next.Topic = topic
		}
	}
	if snap.Tick > next.Tick {
		next.Tick = snap.Tick
	}
	if snap.IsTerminated {
		next.Status = session.StatusCompleted
		next.TerminationReason = snap.TerminationReason
	}
	return next
}

// Fold rebuilds session state from scratch by applying every event in order.
// Replay seeks use this so backward movement needs no inverse transitions.
func Fold(events []session.WorldEvent) session.Session {
	return FoldFrom(session.Session{}, events)
}

// FoldFrom applies a batch of events on top of an existing state. Folding a
// sequence incrementally and folding it as one batch produce identical state.
func FoldFrom(s session.Session, events []session.WorldEvent) session.Session {
	for _, evt := range events {
		s = Apply(s, evt)
	}
	return s
}

func clone(s session.Session) session.Session {
	next := s
	if s.Agents != nil {
		next.Agents = make([]session.Agent, len(s.Agents))
		copy(next.Agents, s.Agents)
	}
	if s.Events != nil {
		next.Events = make([]session.WorldEvent, len(s.Events))
		copy(next.Events, s.Events)
	}
	next.World = copyWorld(s.World)
	return next
}

func copyWorld(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

// insertOrdered appends keeping the log sorted by sequence. Events without a
// sequence keep arrival order at the tail.
func insertOrdered(events []session.WorldEvent, evt session.WorldEvent) []session.WorldEvent {
	if evt.Sequence == 0 || len(events) == 0 || events[len(events)-1].Sequence <= evt.Sequence {
		return append(events, evt)
	}
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].Sequence > evt.Sequence
	})
	events = append(events, session.WorldEvent{})
	copy(events[idx+1:], events[idx:])
	events[idx] = evt
	return events
}

func upsert(agents []session.Agent, id string) []session.Agent {
	for _, a := range agents {
		if a.ID == id {
			return agents
		}
	}
	return append(agents, session.Agent{ID: id, Name: id, Status: session.AgentIdle})
}
