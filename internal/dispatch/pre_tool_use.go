package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/fagemx/edda/internal/board"
	"github.com/fagemx/edda/internal/eventmodel"
	"github.com/fagemx/edda/internal/policy"
)

var claimCheckedTools = map[string]bool{"Edit": true, "Write": true, "Bash": true}

func (d *Dispatcher) handlePreToolUse(ctx context.Context, req Request, branch string) (Response, error) {
	toolName := req.getString("tool_name")
	if !claimCheckedTools[toolName] {
		return Response{}, nil
	}

	toolInput := req.getMap("tool_input")
	targets := toolTargets(toolName, toolInput)
	if len(targets) == 0 {
		return Response{}, nil
	}

	now := d.now()
	boardState, _, err := board.Assemble(d.CoordDir, req.ProjectID, req.SessionID, now)
	if err != nil {
		return Response{}, fmt.Errorf("assemble board: %w", err)
	}

	violations := policy.CheckTargets(targets, claimsForPolicy(boardState.Claims), req.SessionID)
	if len(violations) == 0 {
		return Response{}, nil
	}

	violationPayload := make([]any, 0, len(violations))
	var warning strings.Builder
	warning.WriteString("warning: tool target overlaps another session's claim:\n")
	for _, v := range violations {
		violationPayload = append(violationPayload, map[string]any{
			"target":     v.Target,
			"session_id": v.SessionID,
			"label":      v.Label,
			"glob":       v.Glob,
		})
		fmt.Fprintf(&warning, "- %s matches %s claimed by %s (%s)\n", v.Target, v.Glob, v.Label, v.SessionID)
	}

	_, err = d.Ledger.Append(ctx, branch, eventmodel.TypeSignal, map[string]any{
		"kind":       "scope_violation",
		"actor":      req.SessionID,
		"target":     strings.Join(targets, ", "),
		"detail":     violationPayload,
		"session_id": req.SessionID,
	}, nil)
	if err != nil {
		return Response{}, fmt.Errorf("append scope_violation signal: %w", err)
	}

	return Response{Stderr: strings.TrimRight(warning.String(), "\n")}, nil
}
