// Command edda-hook is the hook process the host agent invokes once per
// lifecycle event (spec.md §6.1). It must never block or crash the host:
// the entire dispatcher call is wrapped by internal/resilience.Run, which
// contains panics and enforces HOOK_TIMEOUT_MS.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fagemx/edda/internal/config"
	"github.com/fagemx/edda/internal/dispatch"
	"github.com/fagemx/edda/internal/ledger"
	"github.com/fagemx/edda/internal/observability"
	"github.com/fagemx/edda/internal/projectid"
	"github.com/fagemx/edda/internal/resilience"
)

func main() {
	os.Exit(run())
}

// run contains the hook's body and returns the process exit code. It never
// panics past this function: resilience.Run contains the dispatcher, and
// every step outside that call is defensive enough to degrade to "exit 0,
// no output" rather than propagate an error to the host.
func run() int {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		observability.Debugf("load config: %v", err)
		cfg = config.Default()
	}
	if cfg.Debug {
		observability.SetDebug(true)
	}

	req, err := readRequest(os.Stdin)
	if err != nil {
		observability.Debugf("read stdin: %v", err)
		return 0
	}

	providers, err := observability.Setup(io.Discard)
	if err != nil {
		observability.Debugf("setup observability: %v", err)
	}
	defer func() {
		if providers != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			_ = providers.Shutdown(shutdownCtx)
		}
	}()

	eddaDir := cfg.LedgerDir
	l, err := ledger.Open(eddaDir, 2000, cfg.BridgeLockTimeoutMS)
	if err != nil {
		observability.Debugf("open ledger: %v", err)
		return 0
	}
	defer l.Close()

	if req.ProjectID == "" {
		if id, err := projectid.ProjectID(req.Cwd); err == nil {
			req.ProjectID = id
		}
	}

	d := dispatch.New(l, userCoordDir(), cfg.ContextBudget)

	result := resilience.Run(context.Background(), time.Duration(cfg.HookTimeoutMS)*time.Millisecond, "dispatch.hook",
		func(ctx context.Context) (dispatch.Response, error) {
			return d.Dispatch(ctx, req)
		})

	if result.Outcome != resilience.OutcomeOK {
		return 0
	}
	if result.Err != nil {
		observability.Debugf("dispatch error: %v", result.Err)
		return 0
	}

	hasWarning := result.Value.Stderr != ""
	writeResponse(os.Stdout, result.Value)
	return resilience.ExitCode(result.Outcome, hasWarning)
}

func readRequest(r io.Reader) (dispatch.Request, error) {
	var req dispatch.Request
	dec := json.NewDecoder(io.LimitReader(r, 1<<20)) // 1 MiB per spec.md §8 property 5
	if err := dec.Decode(&req); err != nil {
		return dispatch.Request{}, err
	}
	return req, nil
}

func writeResponse(w io.Writer, resp dispatch.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_, _ = w.Write(data)
}

// userCoordDir returns the per-user coordination store root (spec.md §6.2:
// "<per-user-store>/projects/<project_id>/..."), defaulting to
// ~/.edda/coordination and overridable for tests/CI via EDDA_COORD_DIR.
func userCoordDir() string {
	if dir := os.Getenv("EDDA_COORD_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "edda-coordination")
	}
	return filepath.Join(home, ".edda", "coordination")
}
