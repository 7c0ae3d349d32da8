// Package dispatch implements the Hook Dispatcher (spec.md §4.3): one
// handler per hook event, wired to the ledger, the coordination store, the
// claim-violation policy check, secret masking, and the context packer.
// Dispatch itself never decides process exit codes or timeouts — that is
// internal/resilience's job; Dispatch is the function resilience.Run wraps.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fagemx/edda/internal/ledger"
	"github.com/fagemx/edda/internal/observability"
	"github.com/fagemx/edda/internal/projectid"
)

// Dispatcher holds the dependencies every handler needs: the workspace
// ledger and the per-user coordination store root (spec.md §6.2 — these are
// two different directories, not the same ".edda").
type Dispatcher struct {
	Ledger        *ledger.Ledger
	CoordDir      string
	ContextBudget int
	nowFunc       func() time.Time
}

// New constructs a Dispatcher. contextBudget <= 0 falls back to the
// packer's own default.
func New(l *ledger.Ledger, coordDir string, contextBudget int) *Dispatcher {
	return &Dispatcher{Ledger: l, CoordDir: coordDir, ContextBudget: contextBudget}
}

func (d *Dispatcher) now() time.Time {
	if d.nowFunc != nil {
		return d.nowFunc()
	}
	return time.Now()
}

// Dispatch resolves project_id if absent, reads the current branch, routes
// to the per-event handler, and records the outcome on the span already
// active in ctx (started by the caller — resilience.Run names it
// "dispatch.hook", per SPEC_FULL.md §4.3.a). Dispatch never starts its own
// span: recording onto the caller's span avoids a redundant nested one.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	if req.ProjectID == "" {
		id, err := projectid.ProjectID(req.Cwd)
		if err != nil {
			return Response{}, fmt.Errorf("resolve project_id: %w", err)
		}
		req.ProjectID = id
	}

	branch, err := d.Ledger.Current()
	if err != nil {
		return Response{}, fmt.Errorf("read current branch: %w", err)
	}

	var resp Response
	switch EventName(req.HookEventName) {
	case EventSessionStart:
		resp, err = d.handleSessionStart(ctx, req, branch)
	case EventUserPromptSubmit:
		resp, err = d.handleUserPromptSubmit(ctx, req, branch)
	case EventPreToolUse:
		resp, err = d.handlePreToolUse(ctx, req, branch)
	case EventPostToolUse:
		resp, err = d.handlePostToolUse(ctx, req, branch)
	case EventPostToolUseFailure:
		resp, err = d.handlePostToolUseFailure(ctx, req, branch)
	case EventSessionEnd:
		resp, err = d.handleSessionEnd(ctx, req, branch)
	case EventPreCompact:
		resp, err = d.handlePreCompact(ctx, req, branch)
	default:
		return Response{}, fmt.Errorf("unknown hook_event_name %q", req.HookEventName)
	}

	span := trace.SpanFromContext(ctx)
	observability.AddHookOutcomeEvent(span, req.HookEventName, req.SessionID, resp.Stdout, resp.Stderr)

	return resp, err
}
