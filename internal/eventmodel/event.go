// Package eventmodel defines the ledger's event shapes, canonical JSON
// encoding, and hash-chain computation. It has no storage dependency: the
// ledger store imports this package to know what an event is, not the
// other way around.
package eventmodel

import (
	"fmt"
	"time"
)

// Type is the closed set of event kinds the ledger persists. The set is
// extensible via config (additional string values are accepted by the
// store), but the payload shapes below are the ones every consumer must
// understand.
type Type string

const (
	TypeNote          Type = "note"
	TypeDecision      Type = "decision"
	TypeCmd           Type = "cmd"
	TypeCommit        Type = "commit"
	TypeMerge         Type = "merge"
	TypeDraft         Type = "draft"
	TypeSignal        Type = "signal"
	TypeSessionDigest Type = "session_digest"
	TypeToolUse       Type = "tool_use"
)

// Role distinguishes the author of a note event.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Ref is a single reference value: either another event_id, a blob
// reference (blob:<algo>:<hex>), or an external URI. The ledger stores refs
// as plain strings; this type alias exists so call sites read clearly.
type Ref = string

// Event is the immutable record persisted by the ledger. Once appended, no
// field is ever mutated (I1); every field below participates in the hash
// computation except Hash itself.
type Event struct {
	EventID    string         `json:"event_id"`
	TS         time.Time      `json:"ts"`
	Type       Type           `json:"type"`
	Branch     string         `json:"branch"`
	ParentHash string         `json:"parent_hash"`
	Hash       string         `json:"hash"`
	Payload    map[string]any `json:"payload"`
	Refs       map[string]Ref `json:"refs"`
}

// HashInput returns the fields that feed the hash computation, in the shape
// H(canonical_json({event_id, ts, type, branch, parent_hash, payload, refs}))
// expects. Hash itself is excluded.
func (e Event) HashInput() map[string]any {
	m := map[string]any{
		"event_id":    e.EventID,
		"ts":          e.TS,
		"type":        string(e.Type),
		"branch":      e.Branch,
		"parent_hash": e.ParentHash,
		"payload":     e.Payload,
	}
	if e.Refs != nil {
		m["refs"] = e.Refs
	} else {
		m["refs"] = map[string]Ref{}
	}
	return m
}

// ComputeHash canonicalizes HashInput and returns its hex-encoded SHA-256
// digest. This is the single place that defines "the hash of an event" —
// the ledger store and verify() must both call this, never reimplement it.
func (e Event) ComputeHash() (string, error) {
	canon, err := Canonicalize(e.HashInput())
	if err != nil {
		return "", fmt.Errorf("canonicalize event %s: %w", e.EventID, err)
	}
	return HashBytes(canon), nil
}

// Validate checks payload shape for the closed set of known types. Unknown
// types (config-extended) are accepted without field validation, per the
// "extensible via config" clause in the payload shapes table.
func (e Event) Validate() error {
	switch e.Type {
	case TypeNote:
		return requireFields(e.Payload, "text", "role")
	case TypeDecision:
		return requireFields(e.Payload, "key", "value", "reason")
	case TypeCmd:
		return requireFields(e.Payload, "argv", "exit_code", "duration_ms")
	case TypeCommit:
		return requireFields(e.Payload, "title", "purpose", "contributions")
	case TypeMerge:
		return requireFields(e.Payload, "source", "destination", "strategy")
	case TypeSessionDigest:
		return requireFields(e.Payload, "session_id", "summary")
	}
	return nil
}

func requireFields(payload map[string]any, fields ...string) error {
	for _, f := range fields {
		if _, ok := payload[f]; !ok {
			return fmt.Errorf("payload missing required field %q", f)
		}
	}
	return nil
}
