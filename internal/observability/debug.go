// Package observability provides the hook dispatcher's debug logging (gated
// by the DEBUG environment variable, never written to the host-visible
// stdout/stderr channel) and OpenTelemetry provider wiring.
package observability

import (
	"fmt"
	"os"
	"sync"
)

var (
	debugMu sync.Mutex
	debugOn = os.Getenv("DEBUG") != ""
)

// SetDebug overrides the DEBUG environment variable for the current
// process, used by tests and by edda-hook's main when the loaded config
// sets debug: true.
func SetDebug(on bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugOn = on
}

// Enabled reports whether debug logging is active.
func Enabled() bool {
	debugMu.Lock()
	defer debugMu.Unlock()
	return debugOn
}

// Debugf writes a formatted diagnostic line to stderr when debug logging is
// enabled. This is the only channel the resilience shell's TIMEOUT/PANIC
// markers are written to (§4.5); it must never be confused with the host's
// stdout/stderr contract (internal/dispatch.Response).
func Debugf(format string, args ...any) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "[edda] "+format+"\n", args...)
}
