// Package coordination implements the per-project coordination store: one
// heartbeat file per session plus a single append-only coordination.jsonl
// log, folded into the effective claims/bindings/requests a board assembles
// from. Storage layout and liveness threshold follow spec.md §4.2.
package coordination

import "time"

// LivenessThreshold is how long a heartbeat remains "fresh"; heartbeats
// older than this are excluded from active-peer discovery and from the
// effective claim set.
const LivenessThreshold = 120 * time.Second

// Heartbeat is one session's liveness + activity record, written atomically
// (temp file + rename) by the SessionStart and UserPromptSubmit hooks. Other
// hook events do not refresh it.
type Heartbeat struct {
	SessionID    string    `json:"session_id"`
	ProjectID    string    `json:"project_id"`
	Label        string    `json:"label"`
	GitBranch    string    `json:"git_branch"`
	CurrentFiles []string  `json:"current_files"`
	CurrentTask  string    `json:"current_task"`
	LastSeen     time.Time `json:"last_seen"`
}

// IsStale reports whether h's heartbeat has aged past LivenessThreshold as
// of now.
func (h Heartbeat) IsStale(now time.Time) bool {
	return now.Sub(h.LastSeen) > LivenessThreshold
}

// PeerSummary is what board assembly exposes for one active peer: enough
// to render "Xs ago" without re-reading the heartbeat file.
type PeerSummary struct {
	SessionID   string
	Label       string
	GitBranch   string
	CurrentTask string
	LastSeen    time.Time
}

// RecordKind is the closed set of coordination.jsonl line kinds.
type RecordKind string

const (
	RecordClaim       RecordKind = "claim"
	RecordUnclaim     RecordKind = "unclaim"
	RecordBinding     RecordKind = "binding"
	RecordRequest     RecordKind = "request"
	RecordRequestAck  RecordKind = "request_ack"
)

// Record is one line of coordination.jsonl. Fields are a union of all five
// kinds; only the fields relevant to Kind are populated by the writer, and
// readers must check Kind before trusting a field.
type Record struct {
	Kind RecordKind `json:"kind"`
	TS   time.Time  `json:"ts"`

	// claim / unclaim
	SessionID string   `json:"session_id,omitempty"`
	Label     string   `json:"label,omitempty"`
	PathGlobs []string `json:"path_globs,omitempty"`

	// binding
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`

	// request / request_ack
	FromSession string `json:"from_session,omitempty"`
	FromLabel   string `json:"from_label,omitempty"`
	ToLabel     string `json:"to_label,omitempty"`
	Message     string `json:"message,omitempty"`
}

// EffectiveClaim is a still-live claim: its owning session has no later
// unclaim record and a fresh heartbeat.
type EffectiveClaim struct {
	SessionID string
	Label     string
	PathGlobs []string
	CreatedAt time.Time
}

// EffectiveBinding is the winning record for one key: the greatest-ts
// record, with Conflict set if a different (session, value) pair appeared
// within 60s of the winner.
type EffectiveBinding struct {
	Key       string
	Value     string
	Reason    string
	SessionID string
	Label     string
	TS        time.Time
	Conflict  bool
}

// PendingRequest is a request with no matching request_ack at or after its
// timestamp.
type PendingRequest struct {
	FromSession string
	FromLabel   string
	ToLabel     string
	Message     string
	TS          time.Time
}

// CoordState is the fold's output: the board's three derived views, plus
// bookkeeping identical in shape to the teacher's deletions.LoadResult so
// `edda doctor` can report malformed-line counts the same way.
type CoordState struct {
	Claims   []EffectiveClaim
	Bindings []EffectiveBinding
	Requests []PendingRequest
	Skipped  int
	Warnings []string
}

// BoardState is what one hook invocation injects into context: the
// point-in-time view produced by a single heartbeat-directory scan plus a
// single coordination-log fold (spec.md §4.2 "the single hot call").
type BoardState struct {
	Peers        []PeerSummary
	Claims       []EffectiveClaim
	Bindings     []EffectiveBinding
	RequestsForMe []PendingRequest
}
