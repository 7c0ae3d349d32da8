// Package resilience wraps the hook dispatcher in the contract the host
// agent needs regardless of what the dispatcher does: panics are contained,
// a timeout abandons a runaway dispatch instead of blocking the host, and
// every outcome maps to exit code 0 except a deliberate host warning.
//
// The shape is the teacher's runHook: a context.WithTimeout plus a buffered
// result channel and a select between ctx.Done() and the worker's result,
// adapted from "run an external process and kill its process group on
// timeout" to "run an in-process goroutine and abandon it on timeout" — a
// function call has no process group to kill, so abandonment just means the
// main goroutine stops waiting and returns.
package resilience

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fagemx/edda/internal/observability"
)

// Outcome classifies how a Run call ended, independent of the dispatcher's
// own Response payload.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomePanic
)

// Result is what Run returns: the dispatcher's value (the zero value on timeout/panic)
// and the classification of how the call ended.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// Run executes fn on a worker goroutine and waits up to timeout for it to
// finish. A panic inside fn is recovered and reported as OutcomePanic. If
// timeout elapses first, Run returns immediately with OutcomeTimeout; the
// worker goroutine is abandoned (it may still be running when Run returns,
// but nothing waits on it — the process is expected to exit shortly after,
// letting the OS reclaim the goroutine along with everything else).
func Run[T any](ctx context.Context, timeout time.Duration, spanName string, fn func(ctx context.Context) (T, error)) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracer := otel.Tracer("github.com/fagemx/edda/resilience")
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.Int64("resilience.timeout_ms", timeout.Milliseconds())),
	)
	defer span.End()

	type workerResult struct {
		value T
		err   error
	}
	done := make(chan workerResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("%v", r)
				observability.Debugf("PANIC: %s", msg)
				var zero T
				done <- workerResult{value: zero, err: fmt.Errorf("panic: %s", msg)}
			}
		}()
		v, err := fn(ctx)
		done <- workerResult{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		observability.Debugf("TIMEOUT after %dms", timeout.Milliseconds())
		span.SetStatus(codes.Error, "timeout")
		var zero T
		return Result[T]{Value: zero, Outcome: OutcomeTimeout, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil && isPanicError(res.err) {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
			return Result[T]{Value: res.value, Outcome: OutcomePanic, Err: res.err}
		}
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
		}
		return Result[T]{Value: res.value, Outcome: OutcomeOK, Err: res.err}
	}
}

func isPanicError(err error) bool {
	// fn's own errors and recovered panics are both plain *errors.errorString
	// from fmt.Errorf; Run tags panics by prefix since Go has no portable way
	// to distinguish a recovered panic value's type after it crosses the
	// channel boundary.
	const prefix = "panic: "
	msg := err.Error()
	return len(msg) >= len(prefix) && msg[:len(prefix)] == prefix
}

// ExitCode maps a dispatcher outcome to the process exit code policy: 0
// nominal, 1 only when the dispatcher deliberately produced a host-visible
// warning. Timeouts and panics always exit 0 — the host must never see a
// hook failure surfaced as a process failure.
func ExitCode(outcome Outcome, hasWarning bool) int {
	if outcome != OutcomeOK {
		return 0
	}
	if hasWarning {
		return 1
	}
	return 0
}
