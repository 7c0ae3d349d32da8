package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fagemx/edda/internal/eventmodel"
)

// Query filters events(query) per spec.md §4.1. A zero-value Query matches
// every event, ordered by (branch, event_id) ascending.
type Query struct {
	Branch   string            // empty matches any branch
	Types    []eventmodel.Type // empty matches any type
	Tag      string            // substring match against payload.tags, empty matches any
	Keyword  string            // case-insensitive substring match against canonical payload text
	Since    time.Time         // zero matches any
	Until    time.Time         // zero matches any
	Limit    int               // 0 means no limit
	Reverse  bool
	CursorID string // resume after this event_id, exclusive
}

// Events returns events matching q. It is restartable: passing the last
// returned EventID back as q.CursorID resumes from that point.
func (l *Ledger) Events(ctx context.Context, q Query) ([]eventmodel.Event, error) {
	var conds []string
	var args []any

	if q.Branch != "" {
		conds = append(conds, "branch = ?")
		args = append(args, q.Branch)
	}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ", ")))
	}
	if !q.Since.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, formatTS(q.Since))
	}
	if !q.Until.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, formatTS(q.Until))
	}
	if q.CursorID != "" {
		if q.Reverse {
			conds = append(conds, "event_id < ?")
		} else {
			conds = append(conds, "event_id > ?")
		}
		args = append(args, q.CursorID)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	order := "ASC"
	if q.Reverse {
		order = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT event_id, ts, type, branch, parent_hash, hash, payload, refs
		FROM events %s ORDER BY branch %s, event_id %s
	`, where, order, order)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query events", err)
	}
	defer rows.Close()

	var out []eventmodel.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if q.Tag != "" && !payloadHasTag(ev.Payload, q.Tag) {
			continue
		}
		if q.Keyword != "" && !payloadMatchesKeyword(ev.Payload, q.Keyword) {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, wrapDBError("iterate events", rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(rows rowScanner) (eventmodel.Event, error) {
	var ev eventmodel.Event
	var tsStr, payloadJSON, refsJSON string
	if err := rows.Scan(&ev.EventID, &tsStr, &ev.Type, &ev.Branch, &ev.ParentHash, &ev.Hash, &payloadJSON, &refsJSON); err != nil {
		return eventmodel.Event{}, fmt.Errorf("scan event row: %w", err)
	}
	ts, err := time.Parse("2006-01-02T15:04:05.000Z", tsStr)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("parse event ts %q: %w", tsStr, err)
	}
	ev.TS = ts
	if err := json.Unmarshal([]byte(payloadJSON), &ev.Payload); err != nil {
		return eventmodel.Event{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := json.Unmarshal([]byte(refsJSON), &ev.Refs); err != nil {
		return eventmodel.Event{}, fmt.Errorf("unmarshal refs: %w", err)
	}
	return ev, nil
}

func payloadHasTag(payload map[string]any, tag string) bool {
	raw, ok := payload["tags"]
	if !ok {
		return false
	}
	tags, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, t := range tags {
		if s, ok := t.(string); ok && strings.Contains(strings.ToLower(s), strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func payloadMatchesKeyword(payload map[string]any, keyword string) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), strings.ToLower(keyword))
}

// Head returns the current HEAD event_id for branch, or "" if the branch
// has no events yet.
func (l *Ledger) Head(ctx context.Context, branch string) (string, error) {
	var headEventID *string
	err := l.db.QueryRowContext(ctx, `SELECT head_event_id FROM branches WHERE name = ?`, branch).Scan(&headEventID)
	if err != nil {
		return "", wrapDBError("read head", err)
	}
	if headEventID == nil {
		return "", nil
	}
	return *headEventID, nil
}
