package eventmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Canonicalize renders v as canonical JSON bytes: map keys sorted
// lexicographically by codepoint, timestamps as UTC millisecond
// ISO-8601, no insignificant whitespace, and a hard rejection of
// NaN/Infinity anywhere in the value tree.
//
// v must already be JSON-shaped: maps, slices, strings, numbers, bools,
// nil, or time.Time. Structs are not supported; callers build
// map[string]any trees (see Event.HashInput) before calling this.
func Canonicalize(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf, err = appendCanonical(buf, norm)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// HashBytes returns the lowercase-hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// normalize walks v, converting time.Time to its canonical string form and
// rejecting NaN/Infinity floats. appendCanonical understands map[string]any,
// []any, string, bool, nil, float64, int and int64; any other type passes
// through unchanged and is rejected there.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			nv, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("canonical json: NaN/Infinity not allowed")
		}
		return t, nil
	default:
		return v, nil
	}
}

// appendCanonical writes v's canonical JSON encoding to buf and returns the
// extended slice.
func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if t {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case string:
		enc, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return append(buf, enc...), nil
	case int:
		return append(buf, []byte(fmt.Sprintf("%d", t))...), nil
	case int64:
		return append(buf, []byte(fmt.Sprintf("%d", t))...), nil
	case float64:
		return appendCanonicalNumber(buf, t), nil
	case map[string]any:
		return appendCanonicalMap(buf, t)
	case []any:
		return appendCanonicalArray(buf, t)
	default:
		return nil, fmt.Errorf("canonical json: unsupported type %T", v)
	}
}

func appendCanonicalNumber(buf []byte, f float64) []byte {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return append(buf, []byte(fmt.Sprintf("%d", int64(f)))...)
	}
	s := fmt.Sprintf("%g", f)
	return append(buf, s...)
}

func appendCanonicalMap(buf []byte, m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyEnc, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyEnc...)
		buf = append(buf, ':')
		buf, err = appendCanonical(buf, m[k])
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

func appendCanonicalArray(buf []byte, arr []any) ([]byte, error) {
	buf = append(buf, '[')
	for i, v := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendCanonical(buf, v)
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, ']')
	return buf, nil
}
