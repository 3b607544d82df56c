package session

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to active", StatusPending, StatusActive, true},
		{"pending to paused", StatusPending, StatusPaused, false},
		{"active to paused", StatusActive, StatusPaused, true},
		{"paused to active", StatusPaused, StatusActive, true},
		{"active to completed", StatusActive, StatusCompleted, true},
		{"paused to completed", StatusPaused, StatusCompleted, true},
		{"completed to active", StatusCompleted, StatusActive, false},
		{"completed to pending", StatusCompleted, StatusPending, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%v, %v) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStatusStrings(t *testing.T) {
	if StatusPending.String() != "pending" || StatusCompleted.String() != "completed" {
		t.Fatal("unexpected status wire names")
	}
	if AgentThinking.String() != "thinking" || AgentSpeaking.String() != "speaking" {
		t.Fatal("unexpected agent status wire names")
	}
}

func TestSessionLookups(t *testing.T) {
	s := Session{
		Agents: []Agent{{ID: "a1", Status: AgentIdle}},
		Events: []WorldEvent{
			{ID: "evt-1", Sequence: 3},
			{ID: "evt-2", Sequence: 9},
		},
	}

	if _, ok := s.Agent("a1"); !ok {
		t.Fatal("expected to find agent a1")
	}
	if _, ok := s.Agent("missing"); ok {
		t.Fatal("did not expect to find missing agent")
	}
	if !s.HasEvent("evt-2") {
		t.Fatal("expected to find evt-2")
	}
	if s.HasEvent("") {
		t.Fatal("empty id must never match")
	}
	if got := s.LastSequence(); got != 9 {
		t.Fatalf("expected last sequence 9, got %d", got)
	}
	if got := (Session{}).LastSequence(); got != 0 {
		t.Fatalf("expected zero last sequence for empty log, got %d", got)
	}
}
