package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/eventmodel"
)

func (d *Dispatcher) handlePreCompact(ctx context.Context, req Request, branch string) (Response, error) {
	if _, err := d.Ledger.Append(ctx, branch, eventmodel.TypeNote, map[string]any{
		"text":       "context compacted",
		"role":       string(eventmodel.RoleSystem),
		"tags":       []any{"precompact"},
		"session_id": req.SessionID,
	}, nil); err != nil {
		return Response{}, fmt.Errorf("append precompact note: %w", err)
	}
	return Response{}, nil
}
