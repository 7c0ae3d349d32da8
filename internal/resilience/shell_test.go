package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunOK(t *testing.T) {
	res := Run(context.Background(), time.Second, "test.ok", func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	if res.Outcome != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %v", res.Outcome)
	}
	if res.Value != "hello" {
		t.Fatalf("got %q", res.Value)
	}
	if ExitCode(res.Outcome, false) != 0 {
		t.Fatalf("expected exit code 0")
	}
}

func TestRunTimeout(t *testing.T) {
	res := Run(context.Background(), 50*time.Millisecond, "test.timeout", func(ctx context.Context) (string, error) {
		time.Sleep(2 * time.Second)
		return "too late", nil
	})
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("expected OutcomeTimeout, got %v", res.Outcome)
	}
	if ExitCode(res.Outcome, true) != 0 {
		t.Fatalf("timeout must always exit 0, even with a pending warning")
	}
}

func TestRunPanic(t *testing.T) {
	res := Run(context.Background(), time.Second, "test.panic", func(ctx context.Context) (string, error) {
		panic("bad heartbeat")
	})
	if res.Outcome != OutcomePanic {
		t.Fatalf("expected OutcomePanic, got %v", res.Outcome)
	}
	if res.Err == nil {
		t.Fatalf("expected non-nil error describing the panic")
	}
	if ExitCode(res.Outcome, true) != 0 {
		t.Fatalf("panic must always exit 0")
	}
}

func TestRunDispatcherError(t *testing.T) {
	wantErr := errors.New("boom")
	res := Run(context.Background(), time.Second, "test.error", func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	if res.Outcome != OutcomeOK {
		t.Fatalf("a plain dispatcher error is not a panic or timeout, got %v", res.Outcome)
	}
	if !errors.Is(res.Err, wantErr) {
		t.Fatalf("expected underlying error preserved, got %v", res.Err)
	}
}

func TestExitCodeWarningOnlyOnOK(t *testing.T) {
	if ExitCode(OutcomeOK, true) != 1 {
		t.Fatalf("expected exit 1 for a deliberate OK-outcome warning")
	}
	if ExitCode(OutcomeOK, false) != 0 {
		t.Fatalf("expected exit 0 with no warning")
	}
}
