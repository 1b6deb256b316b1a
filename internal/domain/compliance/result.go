package compliance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject returns the first brace-delimited object found in a
// free-text model reply: everything from the first '{' through the last
// '}'. The greedy span means prose containing a brace-delimited aside
// before the real payload yields an unparseable span; that matches the
// upstream contract and is pinned by tests rather than hardened away.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseReply extracts and decodes a coverage verdict from a model reply.
// All three keys (covered, missing, reasoning) must be present.
func ParseReply(reply string) (*Result, error) {
	obj, ok := ExtractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	for _, key := range []string{"covered", "missing", "reasoning"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("reply missing %q", key)
		}
	}

	var res Result
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return &res, nil
}

// Validate checks that Covered and Missing partition the full control
// set exactly: every control in exactly one of the two sets, no
// unknown names, no duplicates.
func (r *Result) Validate() error {
	seen := make(map[Control]int, len(Controls()))
	for _, c := range r.Covered {
		seen[c]++
	}
	for _, c := range r.Missing {
		seen[c]++
	}

	known := make(map[Control]bool, len(Controls()))
	for _, c := range Controls() {
		known[c] = true
		switch seen[c] {
		case 0:
			return fmt.Errorf("control %q neither covered nor missing", c)
		case 1:
		default:
			return fmt.Errorf("control %q listed more than once", c)
		}
	}
	for c := range seen {
		if !known[c] {
			return fmt.Errorf("unknown control %q", c)
		}
	}
	return nil
}
