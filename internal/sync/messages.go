package sync

import "encoding/json"

// Wire message type discriminators shared with the simulation server.
const (
	msgWorldEvent      = "world_event"
	msgStateUpdate     = "state_update"
	msgFullState       = "full_state"
	msgSimulationEnded = "simulation_ended"
	msgAck             = "ack"

	msgJoinSession          = "join_session"
	msgSubmitIntent         = "submit_intent"
	msgModeratorCall        = "moderator_call"
	msgSetInterventionLevel = "set_intervention_level"
	msgGenerateOutline      = "generate_outline"
	msgTriggerScoring       = "trigger_scoring"
)

// serverMessage is the superset envelope of everything the server pushes.
// Which fields are populated depends on Type.
type serverMessage struct {
	Type              string            `json:"type"`
	RequestID         string            `json:"requestId,omitempty"`
	Success           *bool             `json:"success,omitempty"`
	Error             string            `json:"error,omitempty"`
	SessionID         string            `json:"sessionId,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	Event             json.RawMessage   `json:"event,omitempty"`
	Events            []json.RawMessage `json:"events,omitempty"`
	WorldState        map[string]any    `json:"worldState,omitempty"`
	Tick              uint64            `json:"tick,omitempty"`
	IsTerminated      bool              `json:"isTerminated,omitempty"`
	TerminationReason string            `json:"terminationReason,omitempty"`
	Data              map[string]any    `json:"data,omitempty"`
}

// clientMessage is one outbound request. Every request carries a unique
// RequestID the server echoes back on its ack.
type clientMessage struct {
	Type             string         `json:"type"`
	RequestID        string         `json:"requestId"`
	SessionID        string         `json:"sessionId,omitempty"`
	RequestFullState bool           `json:"requestFullState,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
}

// Ack is the outcome of one request/ack exchange. Command failures are
// values, never panics: a rejected or undeliverable request yields
// Success=false with a human-readable Error.
type Ack struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
