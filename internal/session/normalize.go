package session

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
	"github.com/huverse/AstraLinks-sub001/internal/id"
)

// envelopeKeys are record fields consumed by normalization itself. When a
// record carries its content at the top level instead of under "payload",
// everything outside this set becomes the payload.
var envelopeKeys = map[string]bool{
	"eventId":    true,
	"id":         true,
	"sessionId":  true,
	"session_id": true,
	"type":       true,
	"sequence":   true,
	"seq":        true,
	"tick":       true,
	"timestamp":  true,
	"payload":    true,
}

// ParseRecord is the single normalization boundary for inbound event records.
// It coerces the heterogeneous shapes produced by different server versions
// (content nested under payload vs top-level, numeric vs string timestamps,
// tick vs sequence, eventId vs id) into a canonical WorldEvent.
//
// Missing fields are absorbed with defaults rather than rejected; only
// undecodable JSON yields an error.
func ParseRecord(data []byte) (WorldEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return WorldEvent{}, apperrors.Wrap(apperrors.CodeEventMalformed, "decode event record", err)
	}
	return FromRaw(raw), nil
}

// FromRaw normalizes an already-decoded record. See ParseRecord.
func FromRaw(raw map[string]any) WorldEvent {
	evt := WorldEvent{
		ID:        firstString(raw, "eventId", "id"),
		SessionID: firstString(raw, "sessionId", "session_id"),
		Type:      firstString(raw, "type"),
	}
	if evt.ID == "" {
		evt.ID = fallbackID()
	}
	if evt.Type == "" {
		evt.Type = "unknown"
	}

	for _, key := range []string{"sequence", "seq", "tick"} {
		if v, ok := raw[key]; ok {
			if n, ok := asUint64(v); ok {
				evt.Sequence = n
				break
			}
		}
	}

	if v, ok := raw["timestamp"]; ok {
		evt.Timestamp = asTime(v)
	}

	if nested, ok := raw["payload"].(map[string]any); ok {
		evt.Payload = copyMap(nested)
	} else {
		payload := make(map[string]any)
		for key, value := range raw {
			if !envelopeKeys[key] {
				payload[key] = value
			}
		}
		evt.Payload = payload
	}

	return evt
}

func fallbackID() string {
	generated, err := id.NewID()
	if err != nil {
		return fmt.Sprintf("evt-%d", time.Now().UnixNano())
	}
	return generated
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, false
		}
		return uint64(i), true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	n, ok := asUint64(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// asTime accepts epoch milliseconds or an RFC 3339 string. Anything else
// yields the zero time.
func asTime(v any) time.Time {
	switch ts := v.(type) {
	case float64:
		return time.UnixMilli(int64(ts)).UTC()
	case int64:
		return time.UnixMilli(ts).UTC()
	case json.Number:
		if i, err := ts.Int64(); err == nil {
			return time.UnixMilli(i).UTC()
		}
		return time.Time{}
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, ts); err == nil {
				return parsed.UTC()
			}
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

func copyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
