package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxSpanOutputBytes = 4096

// AddHookOutcomeEvent attaches the dispatcher's outcome to span as an event:
// the hook event name, session id, rendered stdout/stderr lengths, and
// previews of non-empty stdout/stderr truncated so a span never carries
// unbounded text. No error attribute is recorded. Adapted from the teacher's
// "record child-process stdout/stderr as span events" pattern to record an
// in-process dispatch outcome instead of captured subprocess output.
func AddHookOutcomeEvent(span trace.Span, eventName, sessionID, stdout, stderr string) {
	attrs := []attribute.KeyValue{
		attribute.String("hook.event", eventName),
		attribute.String("hook.session_id", sessionID),
		attribute.Int("hook.stdout_bytes", len(stdout)),
		attribute.Int("hook.stderr_bytes", len(stderr)),
	}
	if len(stdout) > 0 {
		attrs = append(attrs, attribute.String("hook.stdout_preview", truncate(stdout, maxSpanOutputBytes)))
	}
	if len(stderr) > 0 {
		attrs = append(attrs, attribute.String("hook.stderr_preview", truncate(stderr, maxSpanOutputBytes)))
	}
	span.AddEvent("dispatch.outcome", trace.WithAttributes(attrs...))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
