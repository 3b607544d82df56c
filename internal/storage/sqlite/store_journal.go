package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/storage"
)

var _ storage.JournalStore = (*Store)(nil)

// AppendEvent records one accepted event. Duplicate event ids within a
// session are ignored so re-delivery never corrupts a recording.
func (s *Store) AppendEvent(ctx context.Context, evt session.WorldEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(evt.ID) == "" {
		return fmt.Errorf("event id is required")
	}

	payload, err := encodePayload(evt.Payload)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO world_events (session_id, event_id, event_type, seq, timestamp, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, event_id) DO NOTHING
`,
		evt.SessionID,
		evt.ID,
		evt.Type,
		int64(evt.Sequence),
		toMillis(evt.Timestamp),
		payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns the recorded log for a session ordered by sequence,
// with insertion order breaking ties.
func (s *Store) ListEvents(ctx context.Context, sessionID string) ([]session.WorldEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT event_id, event_type, seq, timestamp, payload
FROM world_events
WHERE session_id = ?
ORDER BY seq ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []session.WorldEvent
	for rows.Next() {
		var (
			evt        session.WorldEvent
			seq        int64
			timestamp  int64
			payloadRaw string
		)
		if err := rows.Scan(&evt.ID, &evt.Type, &seq, &timestamp, &payloadRaw); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		evt.SessionID = sessionID
		evt.Sequence = uint64(seq)
		evt.Timestamp = fromMillis(timestamp)
		payload, err := decodePayload(payloadRaw)
		if err != nil {
			return nil, err
		}
		evt.Payload = payload
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

// PutSnapshot stores the latest full-state fact for a session, replacing any
// previous one.
func (s *Store) PutSnapshot(ctx context.Context, snap session.StateSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(snap.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	worldState, err := encodePayload(snap.WorldState)
	if err != nil {
		return err
	}

	terminated := 0
	if snap.IsTerminated {
		terminated = 1
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO snapshots (session_id, world_state, tick, is_terminated, termination_reason, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
    world_state = excluded.world_state,
    tick = excluded.tick,
    is_terminated = excluded.is_terminated,
    termination_reason = excluded.termination_reason,
    updated_at = excluded.updated_at
`,
		snap.SessionID,
		worldState,
		int64(snap.Tick),
		terminated,
		snap.TerminationReason,
		toMillis(nowUTC()),
	)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot, or storage.ErrNotFound.
func (s *Store) GetSnapshot(ctx context.Context, sessionID string) (session.StateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return session.StateSnapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return session.StateSnapshot{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.StateSnapshot{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT world_state, tick, is_terminated, termination_reason
FROM snapshots
WHERE session_id = ?
`, sessionID)

	var (
		snap          session.StateSnapshot
		worldStateRaw string
		tick          int64
		terminated    int
	)
	err := row.Scan(&worldStateRaw, &tick, &terminated, &snap.TerminationReason)
	if errors.Is(err, sql.ErrNoRows) {
		return session.StateSnapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return session.StateSnapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	snap.SessionID = sessionID
	snap.Tick = uint64(tick)
	snap.IsTerminated = terminated != 0
	worldState, err := decodePayload(worldStateRaw)
	if err != nil {
		return session.StateSnapshot{}, err
	}
	snap.WorldState = worldState
	return snap, nil
}

// ListSessionIDs returns the ids of all recorded sessions, newest activity last.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT session_id FROM world_events GROUP BY session_id ORDER BY MAX(id) ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session ids: %w", err)
	}
	return ids, nil
}

func encodePayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(encoded), nil
}

func decodePayload(value string) (map[string]any, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "{}" {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}
