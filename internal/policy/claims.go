// Package policy checks tool-use targets against a board's effective claims,
// reporting scope violations when one session is about to touch files
// another live session has claimed. The shape is declarative rule set in,
// violation structs out, the same shape the teacher used for label mutex
// groups, generalized here from labels to path-glob ownership.
package policy

import (
	"path/filepath"
	"strings"
)

// Claim is the subset of a board's effective-claim record this package
// needs to evaluate a tool target against.
type Claim struct {
	SessionID string
	Label     string
	PathGlobs []string
}

// Violation records one claim a proposed tool-use target collides with.
type Violation struct {
	Target    string
	SessionID string
	Label     string
	Glob      string
}

// CheckTargets evaluates each target path against the given claims, skipping
// any claim owned by selfSession (a session never violates its own claim).
// A target may match more than one foreign claim; all matches are reported.
func CheckTargets(targets []string, claims []Claim, selfSession string) []Violation {
	var violations []Violation
	for _, target := range targets {
		clean := filepath.ToSlash(target)
		for _, c := range claims {
			if c.SessionID == selfSession {
				continue
			}
			if g, ok := matchesAny(clean, c.PathGlobs); ok {
				violations = append(violations, Violation{
					Target:    target,
					SessionID: c.SessionID,
					Label:     c.Label,
					Glob:      g,
				})
			}
		}
	}
	return violations
}

// matchesAny reports whether target matches any of the globs, returning the
// first glob that matched. Globs are matched with filepath.Match per path
// segment count; a glob containing "**" matches any depth of directories
// by falling back to a prefix check on the segment before "**".
func matchesAny(target string, globs []string) (string, bool) {
	for _, g := range globs {
		g = filepath.ToSlash(g)
		if strings.Contains(g, "**") {
			prefix := strings.SplitN(g, "**", 2)[0]
			prefix = strings.TrimSuffix(prefix, "/")
			if prefix == "" || strings.HasPrefix(target, prefix) {
				return g, true
			}
			continue
		}
		if ok, err := filepath.Match(g, target); err == nil && ok {
			return g, true
		}
		if ok, err := filepath.Match(g, filepath.Base(target)); err == nil && ok {
			return g, true
		}
	}
	return "", false
}
