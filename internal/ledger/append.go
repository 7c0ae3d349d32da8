package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fagemx/edda/internal/eventmodel"
)

// maxAppendRetries bounds ChainConflict retries per spec.md §7
// ("retry a bounded number of times (e.g. 3)").
const maxAppendRetries = 3

// Append allocates an event_id, reads branch HEAD, computes parent_hash and
// hash, hoists any oversized payload field to the blob store, and persists
// the row while advancing HEAD — all inside one transaction. A concurrent
// writer that advanced HEAD between the read and the write causes
// ErrChainConflict; Append retries up to maxAppendRetries times with
// backoff before giving up.
func (l *Ledger) Append(ctx context.Context, branch string, typ eventmodel.Type, payload map[string]any, refs map[string]eventmodel.Ref) (eventmodel.Event, error) {
	var result eventmodel.Event

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 50 * time.Millisecond

	attempt := 0
	op := func() error {
		attempt++
		ev, err := l.appendOnce(ctx, branch, typ, payload, refs)
		if err != nil {
			if Retryable(err) && attempt <= maxAppendRetries {
				return err
			}
			return backoff.Permanent(err)
		}
		result = ev
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		return eventmodel.Event{}, err
	}
	return result, nil
}

func (l *Ledger) appendOnce(ctx context.Context, branch string, typ eventmodel.Type, payload map[string]any, refs map[string]eventmodel.Ref) (eventmodel.Event, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback() // no-op after a successful Commit

	var headEventID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT head_event_id FROM branches WHERE name = ?`, branch).Scan(&headEventID)
	if err != nil {
		if err == sql.ErrNoRows {
			if _, err := tx.ExecContext(ctx, `INSERT INTO branches (name, head_event_id) VALUES (?, NULL)`, branch); err != nil {
				return eventmodel.Event{}, fmt.Errorf("create branch %s: %w", branch, err)
			}
		} else {
			return eventmodel.Event{}, wrapDBError("read branch head", err)
		}
	}

	parentHash := ""
	if headEventID.Valid {
		err = tx.QueryRowContext(ctx, `SELECT hash FROM events WHERE event_id = ?`, headEventID.String).Scan(&parentHash)
		if err != nil {
			return eventmodel.Event{}, wrapDBError("read parent event hash", err)
		}
	}

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE branch = ?`, branch).Scan(&maxSeq); err != nil {
		return eventmodel.Event{}, wrapDBError("read branch seq", err)
	}
	seq := maxSeq.Int64 + 1

	now := l.now()
	eventID, err := eventmodel.NewEventID(now)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	hoistedPayload, err := l.hoistBlobsTx(ctx, tx, payload)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("hoist payload blobs: %w", err)
	}

	ev := eventmodel.Event{
		EventID:    eventID,
		TS:         now,
		Type:       typ,
		Branch:     branch,
		ParentHash: parentHash,
		Payload:    hoistedPayload,
		Refs:       refs,
	}
	if err := ev.Validate(); err != nil {
		return eventmodel.Event{}, fmt.Errorf("validate event: %w", err)
	}

	hash, err := ev.ComputeHash()
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	ev.Hash = hash

	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("marshal payload: %w", err)
	}
	refsJSON, err := json.Marshal(ev.Refs)
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("marshal refs: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE branches SET head_event_id = ? WHERE name = ? AND head_event_id IS ?
	`, eventID, branch, headEventID)
	if err != nil {
		return eventmodel.Event{}, wrapDBError("advance branch head", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return eventmodel.Event{}, fmt.Errorf("check head advance: %w", err)
	}
	if rows == 0 {
		return eventmodel.Event{}, ErrChainConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event_id, seq, ts, type, branch, parent_hash, hash, payload, refs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.EventID, seq, formatTS(ev.TS), string(ev.Type), ev.Branch, ev.ParentHash, ev.Hash, string(payloadJSON), string(refsJSON))
	if err != nil {
		return eventmodel.Event{}, wrapDBError("insert event", err)
	}

	if err := l.bumpRefCountsTx(ctx, tx, ev); err != nil {
		return eventmodel.Event{}, fmt.Errorf("bump blob ref counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return eventmodel.Event{}, fmt.Errorf("commit append: %w", err)
	}
	return ev, nil
}

func (l *Ledger) now() time.Time {
	if l.nowFunc != nil {
		return l.nowFunc()
	}
	return time.Now()
}

// formatTS renders a timestamp the same way canonical JSON does, so the
// stored ts column and the hashed ts agree byte-for-byte.
func formatTS(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
