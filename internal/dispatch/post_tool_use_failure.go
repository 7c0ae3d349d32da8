package dispatch

import (
	"context"
	"fmt"

	"github.com/fagemx/edda/internal/eventmodel"
)

func (d *Dispatcher) handlePostToolUseFailure(ctx context.Context, req Request, branch string) (Response, error) {
	argv := req.getStringSlice("argv")
	exitCode, _ := req.getInt("exit_code")
	durationMS, _ := req.getInt("duration_ms")
	stderr := maskValue(req.getString("stderr"))

	argvAny := make([]any, len(argv))
	for i, a := range argv {
		argvAny[i] = a
	}

	payload := map[string]any{
		"argv":        argvAny,
		"exit_code":   exitCode,
		"duration_ms": durationMS,
		"session_id":  req.SessionID,
	}
	refs := map[string]eventmodel.Ref{}

	if stderr != "" {
		ref, err := d.Ledger.StoreBlob(ctx, []byte(stderr), "stderr")
		if err != nil {
			return Response{}, fmt.Errorf("store stderr blob: %w", err)
		}
		refs["stderr"] = ref
	}

	if _, err := d.Ledger.Append(ctx, branch, eventmodel.TypeCmd, payload, refs); err != nil {
		return Response{}, fmt.Errorf("append cmd failure: %w", err)
	}
	return Response{}, nil
}
