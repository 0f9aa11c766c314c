package routing

import "strings"

// PathPattern matches allowlist paths that carry {param} segments, such as
// /schedule/api/days/{date}. Matching is per segment: a {param} accepts any
// single non-empty segment, everything else must compare equal. There are no
// wildcards spanning several segments.
type PathPattern struct {
	raw      string
	segments []string
}

// parsePathPattern reports ok=false for plain paths (no braces), so callers
// can keep those in the exact-match table, and for malformed patterns.
func parsePathPattern(raw string) (PathPattern, bool) {
	if !strings.Contains(raw, "{") {
		return PathPattern{}, false
	}
	if raw == "" || raw[0] != '/' {
		return PathPattern{}, false
	}

	parts := splitPathSegments(raw)
	for _, s := range parts {
		if s == "" {
			return PathPattern{}, false
		}
		if strings.ContainsAny(s, "{}") && !isParamSegment(s) {
			return PathPattern{}, false
		}
	}
	return PathPattern{raw: raw, segments: parts}, true
}

func (p PathPattern) Match(path string) bool {
	if p.raw == "" {
		return false
	}
	in := splitPathSegments(path)
	if len(in) != len(p.segments) {
		return false
	}
	for i, want := range p.segments {
		if in[i] == "" {
			return false
		}
		if isParamSegment(want) {
			continue
		}
		if in[i] != want {
			return false
		}
	}
	return true
}

func splitPathSegments(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// isParamSegment accepts {name} with a non-empty name.
func isParamSegment(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) > 2
}
