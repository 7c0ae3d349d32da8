package coordination

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func heartbeatsDir(storeDir, projectID string) string {
	return filepath.Join(storeDir, "projects", projectID, "heartbeats")
}

func heartbeatPath(storeDir, projectID, sessionID string) string {
	return filepath.Join(heartbeatsDir(storeDir, projectID), sessionID+".json")
}

// TouchHeartbeat writes (or refreshes) one session's heartbeat file via an
// atomic temp-write-then-rename, the same idiom the teacher uses for
// whole-manifest rewrites (WriteDeletions): a rename on the same filesystem
// is atomic, so a concurrent reader never observes a partially written file.
// A failure here is logged by the caller and otherwise ignored — heartbeat
// writes are best-effort per spec.md §4.2.
func TouchHeartbeat(storeDir string, hb Heartbeat) error {
	dir := heartbeatsDir(storeDir, hb.ProjectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create heartbeats dir: %w", err)
	}

	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	tmp, err := os.CreateTemp(dir, hb.SessionID+".json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp heartbeat file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp heartbeat file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp heartbeat file: %w", err)
	}

	finalPath := heartbeatPath(storeDir, hb.ProjectID, hb.SessionID)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename heartbeat file: %w", err)
	}
	return nil
}

// RemoveHeartbeat deletes a session's heartbeat file on SessionEnd. A
// missing file is not an error.
func RemoveHeartbeat(storeDir, projectID, sessionID string) error {
	err := os.Remove(heartbeatPath(storeDir, projectID, sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove heartbeat file: %w", err)
	}
	return nil
}

// ScanHeartbeats reads the heartbeat directory once and parses every file
// it finds into a session_id-keyed map. This is the single directory read
// per hook invocation that spec.md §4.2 requires; both active-peer
// filtering and claim-liveness checks consume this same map rather than
// re-reading the directory. Missing or corrupt heartbeat files are skipped
// silently (spec.md §4.2 failure semantics): a crashed writer's
// half-written temp file never reaches this directory under the final
// name, but a still-in-flight rename on an unusual filesystem could race a
// reader, so tolerate unmarshal failures.
func ScanHeartbeats(storeDir, projectID string) (map[string]Heartbeat, error) {
	dir := heartbeatsDir(storeDir, projectID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Heartbeat{}, nil
		}
		return nil, fmt.Errorf("read heartbeats dir: %w", err)
	}

	out := make(map[string]Heartbeat, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path) // #nosec G304 - path built from controlled storeDir/projectID
		if err != nil {
			continue
		}
		var hb Heartbeat
		if err := json.Unmarshal(data, &hb); err != nil {
			continue
		}
		if hb.SessionID == "" {
			continue
		}
		out[hb.SessionID] = hb
	}
	return out, nil
}

// FilterActivePeers is the pure counterpart to ScanHeartbeats: given an
// already-scanned heartbeat map, it excludes selfSessionID and any stale
// heartbeat, returning the rest sorted by session_id for deterministic
// output.
func FilterActivePeers(heartbeats map[string]Heartbeat, selfSessionID string, now time.Time) []PeerSummary {
	var peers []PeerSummary
	for _, hb := range heartbeats {
		if hb.SessionID == selfSessionID || hb.IsStale(now) {
			continue
		}
		peers = append(peers, PeerSummary{
			SessionID:   hb.SessionID,
			Label:       hb.Label,
			GitBranch:   hb.GitBranch,
			CurrentTask: hb.CurrentTask,
			LastSeen:    hb.LastSeen,
		})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].SessionID < peers[j].SessionID })
	return peers
}

// DiscoverActivePeers is a convenience wrapper combining ScanHeartbeats and
// FilterActivePeers for callers that don't need the raw heartbeat map
// (e.g. a one-off CLI inspection command, not the hot board-assembly path).
func DiscoverActivePeers(storeDir, projectID, selfSessionID string, now time.Time) ([]PeerSummary, error) {
	heartbeats, err := ScanHeartbeats(storeDir, projectID)
	if err != nil {
		return nil, err
	}
	return FilterActivePeers(heartbeats, selfSessionID, now), nil
}

// SinceDescription renders a human-readable "Xs ago" / "Xm ago" for a
// heartbeat's last_seen relative to now.
func SinceDescription(lastSeen, now time.Time) string {
	d := now.Sub(lastSeen)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
