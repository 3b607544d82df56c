package session

// Status describes the lifecycle state of a session.
type Status int

const (
	// StatusPending indicates the session has not started discussing yet.
	StatusPending Status = iota
	// StatusActive indicates the discussion is ongoing.
	StatusActive
	// StatusPaused indicates the discussion is temporarily suspended.
	StatusPaused
	// StatusCompleted indicates the simulation terminated. Terminal.
	StatusCompleted
)

// String returns the lowercase wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a status change is allowed.
// Completed is terminal; a session never regresses past it.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive
	case StatusActive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive || to == StatusCompleted
	default:
		return false
	}
}

// Session is the client-side view of a discussion session.
type Session struct {
	ID                string
	Topic             string
	Status            Status
	CurrentRound      int
	Agents            []Agent
	Events            []WorldEvent
	World             map[string]any
	Tick              uint64
	TerminationReason string
}

// Agent returns the agent with the given id, if present.
func (s Session) Agent(id string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// HasEvent reports whether an event with the given id was already accepted.
func (s Session) HasEvent(id string) bool {
	if id == "" {
		return false
	}
	for _, evt := range s.Events {
		if evt.ID == id {
			return true
		}
	}
	return false
}

// LastSequence returns the sequence of the newest accepted event, or zero.
func (s Session) LastSequence() uint64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].Sequence
}
