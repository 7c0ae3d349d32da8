package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/fagemx/edda/internal/board"
	"github.com/fagemx/edda/internal/coordination"
)

const currentTaskPreviewLen = 200

func (d *Dispatcher) handleUserPromptSubmit(ctx context.Context, req Request, branch string) (Response, error) {
	now := d.now()
	prompt := req.getString("prompt")

	hb := coordination.Heartbeat{
		SessionID:   req.SessionID,
		ProjectID:   req.ProjectID,
		Label:       req.getString("label"),
		GitBranch:   req.getString("git_branch"),
		CurrentTask: truncate(prompt, currentTaskPreviewLen),
		LastSeen:    now,
	}
	if err := coordination.TouchHeartbeat(d.CoordDir, hb); err != nil {
		return Response{}, fmt.Errorf("touch heartbeat: %w", err)
	}

	boardState, _, err := board.Assemble(d.CoordDir, req.ProjectID, req.SessionID, now)
	if err != nil {
		return Response{}, fmt.Errorf("assemble board: %w", err)
	}

	st, _ := readSessionState(d.CoordDir, req.ProjectID, req.SessionID)
	newPeers := len(boardState.Peers) > st.LastPeerCount
	st.LastPeerCount = len(boardState.Peers)
	if err := writeSessionState(d.CoordDir, req.ProjectID, st); err != nil {
		return Response{}, fmt.Errorf("persist peer count: %w", err)
	}

	if !newPeers {
		return Response{}, nil
	}

	var b strings.Builder
	b.WriteString("## Workspace\n")
	fmt.Fprintf(&b, "New peer activity detected — %d active peer(s) now visible.\n", len(boardState.Peers))
	b.WriteString(renderTail(boardState, "", now))
	return Response{Stdout: b.String()}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
