package dispatch

import "github.com/fagemx/edda/internal/secretmask"

// maskValue is the single call site for secretmask.Mask within dispatch, so
// every string persisted via maskStrings goes through the same redaction.
func maskValue(s string) string {
	return secretmask.Mask(s)
}
