package coordination

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func coordLogPath(storeDir, projectID string) string {
	return filepath.Join(storeDir, "projects", projectID, "coordination.jsonl")
}

// AppendCoord appends one record as a single JSON line, fsyncing before
// return so the write survives a crash immediately after. Kind must be one
// of the five record kinds; AppendCoord does not validate which fields are
// populated for that kind (see Record's field comments).
func AppendCoord(storeDir, projectID string, rec Record) error {
	path := coordLogPath(storeDir, projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create coordination dir: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal coordination record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 - append-only log, shared by multiple writers
	if err != nil {
		return fmt.Errorf("open coordination log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write coordination record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync coordination log: %w", err)
	}
	return nil
}

// FoldCoord scans the coordination log once, applying the effective-state
// rules from spec.md §4.2, and returns claims/bindings/requests as of now.
// A corrupt line is skipped and counted rather than failing the fold — the
// same tolerance the teacher's deletions.LoadDeletions applies to its
// manifest, generalized here from one record shape to five.
func FoldCoord(storeDir, projectID string, heartbeats map[string]Heartbeat, now time.Time) (*CoordState, error) {
	state := &CoordState{Warnings: []string{}}

	path := coordLogPath(storeDir, projectID)
	f, err := os.Open(path) // #nosec G304 - path built from controlled storeDir/projectID
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("open coordination log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			state.Skipped++
			state.Warnings = append(state.Warnings,
				fmt.Sprintf("skipping corrupt line %d in coordination log: %v", lineNo, err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan coordination log: %w", err)
	}

	state.Claims = foldClaims(records, heartbeats, now)
	state.Bindings = foldBindings(records)
	state.Requests = foldRequests(records)
	return state, nil
}

// foldClaims applies: claim(session,label,paths,t) is effective if no
// unclaim(session,label,t') with t' > t exists and the session's heartbeat
// is fresh.
func foldClaims(records []Record, heartbeats map[string]Heartbeat, now time.Time) []EffectiveClaim {
	type claimKey struct{ session, label string }
	latestClaim := make(map[claimKey]Record)
	latestUnclaim := make(map[claimKey]time.Time)

	for _, r := range records {
		switch r.Kind {
		case RecordClaim:
			k := claimKey{r.SessionID, r.Label}
			if existing, ok := latestClaim[k]; !ok || r.TS.After(existing.TS) {
				latestClaim[k] = r
			}
		case RecordUnclaim:
			k := claimKey{r.SessionID, r.Label}
			if t, ok := latestUnclaim[k]; !ok || r.TS.After(t) {
				latestUnclaim[k] = r.TS
			}
		}
	}

	var out []EffectiveClaim
	for k, claim := range latestClaim {
		if unclaimTS, ok := latestUnclaim[k]; ok && unclaimTS.After(claim.TS) {
			continue
		}
		hb, ok := heartbeats[k.session]
		if !ok || hb.IsStale(now) {
			continue
		}
		out = append(out, EffectiveClaim{
			SessionID: claim.SessionID,
			Label:     claim.Label,
			PathGlobs: claim.PathGlobs,
			CreatedAt: claim.TS,
		})
	}
	return out
}

// foldBindings picks, per key, the record with the greatest ts, marking
// conflict=true if a different (session_id, value) pair appears within 60s
// of the winner.
func foldBindings(records []Record) []EffectiveBinding {
	byKey := make(map[string][]Record)
	for _, r := range records {
		if r.Kind != RecordBinding {
			continue
		}
		byKey[r.Key] = append(byKey[r.Key], r)
	}

	var out []EffectiveBinding
	for key, recs := range byKey {
		winner := recs[0]
		for _, r := range recs[1:] {
			if r.TS.After(winner.TS) {
				winner = r
			}
		}
		conflict := false
		for _, r := range recs {
			if r.SessionID == winner.SessionID && r.Value == winner.Value {
				continue
			}
			diff := winner.TS.Sub(r.TS)
			if diff < 0 {
				diff = -diff
			}
			if diff <= 60*time.Second {
				conflict = true
				break
			}
		}
		out = append(out, EffectiveBinding{
			Key:       key,
			Value:     winner.Value,
			Reason:    winner.Reason,
			SessionID: winner.SessionID,
			Label:     winner.Label,
			TS:        winner.TS,
			Conflict:  conflict,
		})
	}
	return out
}

// foldRequests returns requests with no matching request_ack at or after
// their timestamp.
func foldRequests(records []Record) []PendingRequest {
	type reqKey struct{ from, to string }
	var acked = make(map[reqKey][]time.Time)
	for _, r := range records {
		if r.Kind == RecordRequestAck {
			k := reqKey{r.FromSession, r.ToLabel}
			acked[k] = append(acked[k], r.TS)
		}
	}

	var out []PendingRequest
	for _, r := range records {
		if r.Kind != RecordRequest {
			continue
		}
		k := reqKey{r.FromSession, r.ToLabel}
		pending := true
		for _, ackTS := range acked[k] {
			if !ackTS.Before(r.TS) {
				pending = false
				break
			}
		}
		if pending {
			out = append(out, PendingRequest{
				FromSession: r.FromSession,
				FromLabel:   r.FromLabel,
				ToLabel:     r.ToLabel,
				Message:     r.Message,
				TS:          r.TS,
			})
		}
	}
	return out
}
