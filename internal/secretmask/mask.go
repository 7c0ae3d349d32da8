// Package secretmask redacts likely secrets from strings before they are
// persisted to the ledger. Masking is lossy and irreversible by design: once
// a value is replaced it cannot be recovered from the event log.
package secretmask

import (
	"regexp"
	"unicode"
)

var (
	apiKeyPattern = regexp.MustCompile(`(?:sk-|pk-|token_)[A-Za-z0-9]{20,}`)
	authPattern   = regexp.MustCompile(`(?:Bearer|Basic)\s+\S{20,}`)
	kvPattern     = regexp.MustCompile(`(?i)(password|secret|key|token)=\S+`)
)

// Mask applies the three documented secret patterns to s in order and
// returns the redacted result. It is safe to call on text with no secrets;
// such text is returned unchanged.
func Mask(s string) string {
	s = apiKeyPattern.ReplaceAllString(s, "***")
	s = authPattern.ReplaceAllStringFunc(s, func(m string) string {
		for i, c := range m {
			if unicode.IsSpace(c) {
				return m[:i] + " ***"
			}
		}
		return "***"
	})
	s = kvPattern.ReplaceAllString(s, "$1=***")
	return s
}
