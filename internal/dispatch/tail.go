package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fagemx/edda/internal/coordination"
	"github.com/fagemx/edda/internal/policy"
)

// renderTail composes the packer's never-truncated tail: peers, off-limits
// claims, bindings, pending requests, then the write-back protocol. now is
// used only for "Xs ago" rendering, never embedded in a way that would make
// two calls over the same board state disagree on structure.
func renderTail(board *coordination.BoardState, protocolIntro string, now time.Time) string {
	var b strings.Builder

	b.WriteString("## Peers\n")
	if len(board.Peers) == 0 {
		b.WriteString("(no other active peers)\n")
	}
	for _, p := range board.Peers {
		fmt.Fprintf(&b, "- %s (%s) last seen %s, branch=%s, task=%q\n",
			p.Label, p.SessionID, coordination.SinceDescription(p.LastSeen, now), p.GitBranch, p.CurrentTask)
	}

	b.WriteString("## Off-limits\n")
	if len(board.Claims) == 0 {
		b.WriteString("(no active claims)\n")
	}
	for _, c := range board.Claims {
		fmt.Fprintf(&b, "- %s (claimed by %s / %s)\n", strings.Join(c.PathGlobs, ", "), c.Label, c.SessionID)
	}

	b.WriteString("## Bindings\n")
	bindings := append([]coordination.EffectiveBinding(nil), board.Bindings...)
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Key < bindings[j].Key })
	for _, bind := range bindings {
		conflict := ""
		if bind.Conflict {
			conflict = " [CONFLICT]"
		}
		fmt.Fprintf(&b, "- %s = %s (%s)%s\n", bind.Key, bind.Value, bind.Reason, conflict)
	}

	b.WriteString("## Requests\n")
	if len(board.RequestsForMe) == 0 {
		b.WriteString("(none)\n")
	}
	for _, r := range board.RequestsForMe {
		fmt.Fprintf(&b, "- from %s: %s\n", r.FromLabel, r.Message)
	}

	b.WriteString("## Write-back Protocol\n")
	if protocolIntro != "" {
		b.WriteString(protocolIntro)
		b.WriteString("\n")
	}
	b.WriteString(writeBackProtocol)

	return b.String()
}

// claimsForPolicy converts a board's effective claims into the shape
// internal/policy.CheckTargets consumes.
func claimsForPolicy(claims []coordination.EffectiveClaim) []policy.Claim {
	out := make([]policy.Claim, 0, len(claims))
	for _, c := range claims {
		out = append(out, policy.Claim{SessionID: c.SessionID, Label: c.Label, PathGlobs: c.PathGlobs})
	}
	return out
}
