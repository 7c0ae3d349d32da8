package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/eventmodel"
)

func (d *Dispatcher) handlePostToolUse(ctx context.Context, req Request, branch string) (Response, error) {
	toolName := req.getString("tool_name")
	toolInput := req.getMap("tool_input")

	payload := map[string]any{
		"tool_name":  toolName,
		"session_id": req.SessionID,
	}
	if toolInput != nil {
		masked := maskStrings(toolInput)
		if m, ok := masked.(map[string]any); ok {
			if fp, ok := m["file_path"].(string); ok {
				payload["file_path"] = fp
			}
			payload["tool_input"] = m
		}
	}
	if exitCode, ok := req.getInt("exit_code"); ok {
		payload["exit_code"] = exitCode
	}
	if durationMS, ok := req.getInt("duration_ms"); ok {
		payload["duration_ms"] = durationMS
	}

	if _, err := d.Ledger.Append(ctx, branch, eventmodel.TypeToolUse, payload, nil); err != nil {
		return Response{}, fmt.Errorf("append tool_use: %w", err)
	}
	return Response{}, nil
}
