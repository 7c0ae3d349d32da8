package eventmodel

import (
	"fmt"
	"strings"
)

// BlobAlgoSHA256 is the only blob hash algorithm the spec recognizes.
const BlobAlgoSHA256 = "sha256"

// BlobRef formats a content-addressed blob reference: blob:<algo>:<hex>.
func BlobRef(algo, hexDigest string) string {
	return fmt.Sprintf("blob:%s:%s", algo, hexDigest)
}

// ParseBlobRef splits a blob:<algo>:<hex> reference into its parts. ok is
// false if ref is not a well-formed blob reference.
func ParseBlobRef(ref string) (algo, hexDigest string, ok bool) {
	const prefix = "blob:"
	if !strings.HasPrefix(ref, prefix) {
		return "", "", false
	}
	rest := ref[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", "", false
	}
	algo = rest[:idx]
	hexDigest = rest[idx+1:]
	if algo == "" || hexDigest == "" {
		return "", "", false
	}
	return algo, hexDigest, true
}

// IsBlobRef reports whether s looks like a blob reference.
func IsBlobRef(s string) bool {
	_, _, ok := ParseBlobRef(s)
	return ok
}
