package session

// AgentStatus describes what an agent is currently doing. It is derived
// solely from the most recent event naming that agent.
type AgentStatus int

const (
	// AgentIdle indicates the agent is waiting for its turn.
	AgentIdle AgentStatus = iota
	// AgentThinking indicates the agent is preparing a contribution.
	AgentThinking
	// AgentSpeaking indicates the agent holds the floor.
	AgentSpeaking
)

// String returns the lowercase wire name of the agent status.
func (s AgentStatus) String() string {
	switch s {
	case AgentIdle:
		return "idle"
	case AgentThinking:
		return "thinking"
	case AgentSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Agent is one participant in a discussion session.
type Agent struct {
	ID         string
	Name       string
	Role       string
	Status     AgentStatus
	SpeakCount int
}
