package dispatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// sessionState is small per-session bookkeeping the dispatcher needs across
// hook invocations but that isn't part of the coordination store's own data
// model (spec.md §3.2 defines heartbeats/claims/bindings/requests; it has no
// notion of "the event_id a session started at" or "how many peers were
// visible last prompt"). It lives alongside the heartbeat directory and is
// written with the same temp-then-rename idiom, removed at SessionEnd
// alongside the heartbeat file itself.
type sessionState struct {
	SessionID      string `json:"session_id"`
	StartEventID   string `json:"start_event_id"`
	LastPeerCount  int    `json:"last_peer_count"`
}

func sessionStateDir(storeDir, projectID string) string {
	return filepath.Join(storeDir, "projects", projectID, "sessions")
}

func sessionStatePath(storeDir, projectID, sessionID string) string {
	return filepath.Join(sessionStateDir(storeDir, projectID), sessionID+".json")
}

func readSessionState(storeDir, projectID, sessionID string) (sessionState, bool) {
	data, err := os.ReadFile(sessionStatePath(storeDir, projectID, sessionID)) // #nosec G304 - path built from controlled storeDir/projectID/sessionID
	if err != nil {
		return sessionState{SessionID: sessionID}, false
	}
	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return sessionState{SessionID: sessionID}, false
	}
	return st, true
}

func writeSessionState(storeDir, projectID string, st sessionState) error {
	dir := sessionStateDir(storeDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session state dir: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	tmp, err := os.CreateTemp(dir, st.SessionID+".json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp session state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp session state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session state file: %w", err)
	}
	if err := os.Rename(tmpPath, sessionStatePath(storeDir, projectID, st.SessionID)); err != nil {
		return fmt.Errorf("rename session state file: %w", err)
	}
	return nil
}

func removeSessionState(storeDir, projectID, sessionID string) error {
	err := os.Remove(sessionStatePath(storeDir, projectID, sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session state file: %w", err)
	}
	return nil
}
