package session

import (
	"testing"
	"time"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
)

func TestParseRecordNestedPayload(t *testing.T) {
	data := []byte(`{
		"eventId": "evt-1",
		"sessionId": "sess-1",
		"type": "agent:speaking",
		"tick": 42,
		"timestamp": 1700000000000,
		"payload": {"speaker": "a1", "content": "hello"}
	}`)

	evt, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if evt.ID != "evt-1" {
		t.Fatalf("expected id evt-1, got %q", evt.ID)
	}
	if evt.SessionID != "sess-1" {
		t.Fatalf("expected session sess-1, got %q", evt.SessionID)
	}
	if evt.Type != "agent:speaking" {
		t.Fatalf("expected type agent:speaking, got %q", evt.Type)
	}
	if evt.Sequence != 42 {
		t.Fatalf("expected sequence from tick, got %d", evt.Sequence)
	}
	want := time.UnixMilli(1700000000000).UTC()
	if !evt.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, evt.Timestamp)
	}
	if evt.Payload["content"] != "hello" {
		t.Fatalf("expected nested payload content, got %v", evt.Payload)
	}
	if evt.Speaker() != "a1" {
		t.Fatalf("expected speaker a1, got %q", evt.Speaker())
	}
}

func TestParseRecordTopLevelContent(t *testing.T) {
	data := []byte(`{
		"id": "evt-2",
		"type": "agent:thinking",
		"sequence": 7,
		"timestamp": "2026-03-01T12:00:00Z",
		"speaker": "a2",
		"content": "pondering"
	}`)

	evt, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if evt.ID != "evt-2" {
		t.Fatalf("expected id from fallback key, got %q", evt.ID)
	}
	if evt.Sequence != 7 {
		t.Fatalf("expected sequence 7, got %d", evt.Sequence)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !evt.Timestamp.Equal(want) {
		t.Fatalf("expected parsed string timestamp, got %v", evt.Timestamp)
	}
	if evt.Payload["speaker"] != "a2" || evt.Payload["content"] != "pondering" {
		t.Fatalf("expected top-level fields lifted into payload, got %v", evt.Payload)
	}
	if _, ok := evt.Payload["id"]; ok {
		t.Fatal("expected envelope keys excluded from payload")
	}
}

func TestParseRecordAbsorbsMissingFields(t *testing.T) {
	evt, err := ParseRecord([]byte(`{}`))
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if evt.ID == "" {
		t.Fatal("expected generated fallback id")
	}
	if evt.Type != "unknown" {
		t.Fatalf("expected unknown type, got %q", evt.Type)
	}
	if evt.Sequence != 0 {
		t.Fatalf("expected zero sequence, got %d", evt.Sequence)
	}
	if evt.Speaker() != SystemSpeaker {
		t.Fatalf("expected system speaker default, got %q", evt.Speaker())
	}
}

func TestParseRecordRejectsUndecodableJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for undecodable record")
	}
	if !apperrors.IsCode(err, apperrors.CodeEventMalformed) {
		t.Fatalf("expected EVENT_MALFORMED, got %v", err)
	}
}

func TestFromRawGeneratesUniqueFallbackIDs(t *testing.T) {
	a := FromRaw(map[string]any{"type": "note"})
	b := FromRaw(map[string]any{"type": "note"})
	if a.ID == b.ID {
		t.Fatalf("expected distinct fallback ids, got %q twice", a.ID)
	}
}

func TestRoundHelper(t *testing.T) {
	evt := FromRaw(map[string]any{"type": "round:start", "payload": map[string]any{"round": float64(3)}})
	round, ok := evt.Round()
	if !ok || round != 3 {
		t.Fatalf("expected round 3, got %d ok=%v", round, ok)
	}

	evt = FromRaw(map[string]any{"type": "round:start", "payload": map[string]any{}})
	if _, ok := evt.Round(); ok {
		t.Fatal("expected no round when payload omits it")
	}
}
