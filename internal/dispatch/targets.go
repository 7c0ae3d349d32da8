package dispatch

import "strings"

// toolTargets extracts the file-path-shaped targets a PreToolUse matcher
// needs to check against claims (spec.md §4.3: "For Edit/Write/Bash
// matchers: check the target file(s)"). Edit/Write carry a structured
// file_path (or file_paths for a multi-file variant); Bash has no structured
// target, so its command string is scanned for path-shaped tokens as a
// best-effort heuristic — a false negative here only degrades a warning,
// it never blocks the tool call (PreToolUse is advisory).
func toolTargets(toolName string, toolInput map[string]any) []string {
	switch toolName {
	case "Edit", "Write":
		var out []string
		if fp, ok := toolInput["file_path"].(string); ok && fp != "" {
			out = append(out, fp)
		}
		if fps, ok := toolInput["file_paths"].([]any); ok {
			for _, v := range fps {
				if s, ok := v.(string); ok && s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case "Bash":
		cmd, _ := toolInput["command"].(string)
		return pathLikeTokens(cmd)
	default:
		return nil
	}
}

// pathLikeTokens returns whitespace-separated tokens of cmd that look like a
// file path: containing a slash or a dot, and not a shell flag.
func pathLikeTokens(cmd string) []string {
	var out []string
	for _, tok := range strings.Fields(cmd) {
		tok = strings.Trim(tok, `"'`)
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if strings.ContainsAny(tok, "/.") {
			out = append(out, tok)
		}
	}
	return out
}

// maskStrings walks v (the decoded JSON tree of a tool's input/output) and
// replaces every string leaf with its secret-masked form, leaving map/slice
// structure intact so the persisted payload stays queryable.
func maskStrings(v any) any {
	switch t := v.(type) {
	case string:
		return maskValue(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = maskStrings(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = maskStrings(val)
		}
		return out
	default:
		return v
	}
}
