package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/board"
	"github.com/fagemx/edda/internal/coordination"
	"github.com/fagemx/edda/internal/eventmodel"
)

func (d *Dispatcher) handleSessionEnd(ctx context.Context, req Request, branch string) (Response, error) {
	now := d.now()
	st, _ := readSessionState(d.CoordDir, req.ProjectID, req.SessionID)

	dg, err := buildDigest(ctx, d.Ledger, branch, req.SessionID, st.StartEventID)
	if err != nil {
		return Response{}, fmt.Errorf("build digest: %w", err)
	}

	decisionIDs := make([]any, len(dg.DecisionEventIDs))
	for i, id := range dg.DecisionEventIDs {
		decisionIDs[i] = id
	}

	if _, err := d.Ledger.Append(ctx, branch, eventmodel.TypeSessionDigest, map[string]any{
		"session_id":        req.SessionID,
		"summary":           dg.Summary,
		"decision_event_ids": decisionIDs,
		"next_steps":        []any{},
	}, nil); err != nil {
		return Response{}, fmt.Errorf("append session_digest: %w", err)
	}

	_, coordState, err := board.Assemble(d.CoordDir, req.ProjectID, req.SessionID, now)
	if err != nil {
		return Response{}, fmt.Errorf("assemble board for unclaim: %w", err)
	}
	for _, c := range coordState.Claims {
		if c.SessionID != req.SessionID {
			continue
		}
		rec := coordination.Record{
			Kind:      coordination.RecordUnclaim,
			TS:        now,
			SessionID: c.SessionID,
			Label:     c.Label,
			PathGlobs: c.PathGlobs,
		}
		if err := coordination.AppendCoord(d.CoordDir, req.ProjectID, rec); err != nil {
			return Response{}, fmt.Errorf("append unclaim for %s: %w", c.Label, err)
		}
	}

	if err := coordination.RemoveHeartbeat(d.CoordDir, req.ProjectID, req.SessionID); err != nil {
		return Response{}, fmt.Errorf("remove heartbeat: %w", err)
	}
	if err := removeSessionState(d.CoordDir, req.ProjectID, req.SessionID); err != nil {
		return Response{}, fmt.Errorf("remove session state: %w", err)
	}

	return Response{}, nil
}
