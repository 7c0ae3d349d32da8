package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/board"
	"github.com/fagemx/edda/internal/coordination"
	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/packer"
)

func (d *Dispatcher) handleSessionStart(ctx context.Context, req Request, branch string) (Response, error) {
	now := d.now()

	ev, err := d.Ledger.Append(ctx, branch, eventmodel.TypeNote, map[string]any{
		"text":       "session started",
		"role":       string(eventmodel.RoleSystem),
		"tags":       []any{"session_start"},
		"session_id": req.SessionID,
	}, nil)
	if err != nil {
		return Response{}, fmt.Errorf("append session_start note: %w", err)
	}

	hb := coordination.Heartbeat{
		SessionID: req.SessionID,
		ProjectID: req.ProjectID,
		Label:     req.getString("label"),
		GitBranch: req.getString("git_branch"),
		LastSeen:  now,
	}
	if err := coordination.TouchHeartbeat(d.CoordDir, hb); err != nil {
		return Response{}, fmt.Errorf("touch heartbeat: %w", err)
	}

	boardState, _, err := board.Assemble(d.CoordDir, req.ProjectID, req.SessionID, now)
	if err != nil {
		return Response{}, fmt.Errorf("assemble board: %w", err)
	}

	if err := writeSessionState(d.CoordDir, req.ProjectID, sessionState{
		SessionID:    req.SessionID,
		StartEventID: ev.EventID,
	}); err != nil {
		return Response{}, fmt.Errorf("write session state: %w", err)
	}

	protocolIntro := ""
	if len(boardState.Peers) > 0 {
		protocolIntro = coordinationProtocolIntro
	}

	decisions, err := d.recentDecisions(ctx, branch)
	if err != nil {
		return Response{}, err
	}
	prevSession, err := d.previousSessionDigest(ctx, branch, req.SessionID)
	if err != nil {
		return Response{}, err
	}

	snapshot := packer.Pack(packer.Input{
		Branch:          branch,
		Decisions:       decisions,
		PreviousSession: prevSession,
		Tail:            renderTail(boardState, protocolIntro, now),
		Budget:          d.ContextBudget,
	})
	return Response{Stdout: snapshot}, nil
}
