package session

import "time"

// Well-known event types emitted by the simulation. The set is open: events
// of any other type are recorded in the log without side effects.
const (
	EventAgentSpeaking = "agent:speaking"
	EventAgentSpeak    = "agent:speak"
	EventAgentThinking = "agent:thinking"
	EventAgentDone     = "agent:done"
	EventTurnEnd       = "turn:end"
	EventRoundStart    = "round:start"
)

// SystemSpeaker is the speaker id assumed when an event names none.
const SystemSpeaker = "system"

// WorldEvent is one atomic, sequenced fact emitted by the authoritative
// simulation. Immutable once accepted.
type WorldEvent struct {
	ID        string
	SessionID string
	Type      string
	Sequence  uint64
	Timestamp time.Time
	Payload   map[string]any
}

// Speaker returns the agent id the event names, defaulting to SystemSpeaker.
func (e WorldEvent) Speaker() string {
	for _, key := range []string{"speaker", "agentId", "agent_id"} {
		if v, ok := e.Payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return SystemSpeaker
}

// Round returns the round number carried in the payload, if any.
func (e WorldEvent) Round() (int, bool) {
	v, ok := e.Payload["round"]
	if !ok {
		return 0, false
	}
	n, ok := asInt(v)
	return n, ok
}

// StateSnapshot is an out-of-band full-state fact used to fast-forward a
// client lacking event history.
type StateSnapshot struct {
	SessionID         string
	WorldState        map[string]any
	Tick              uint64
	IsTerminated      bool
	TerminationReason string
}
