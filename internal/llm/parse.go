package llm

import (
	"encoding/json"
	"strings"
)

// ParseModelJSON extracts a JSON value from arbitrary model text output.
// The four strategies run in a fixed order and short-circuit on the first
// success, even when a later strategy might yield a more plausible value:
//
//  1. direct parse of the trimmed text
//  2. the text between the first and last fenced-block delimiter
//  3. the substring from the first '[' to the last ']'
//  4. the substring from the first '{' to the last '}'
//
// The returned value is the raw JSON of the winning strategy; ok is false
// when all four fail.
func ParseModelJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if raw, ok := tryJSON(trimmed); ok {
		return raw, true
	}

	if inner, ok := fencedBlock(trimmed); ok {
		if raw, ok := tryJSON(inner); ok {
			return raw, true
		}
	}

	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start != -1 && end > start {
		if raw, ok := tryJSON(trimmed[start : end+1]); ok {
			return raw, true
		}
	}

	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start != -1 && end > start {
		if raw, ok := tryJSON(trimmed[start : end+1]); ok {
			return raw, true
		}
	}

	return nil, false
}

func tryJSON(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// fencedBlock returns the text between the first and last ``` delimiter,
// with an optional language tag on the opening fence stripped.
func fencedBlock(text string) (string, bool) {
	const fence = "```"
	first := strings.Index(text, fence)
	last := strings.LastIndex(text, fence)
	if first == -1 || last <= first {
		return "", false
	}
	inner := text[first+len(fence) : last]
	if idx := strings.IndexByte(inner, '\n'); idx != -1 {
		tag := strings.TrimSpace(inner[:idx])
		if tag != "" && !strings.ContainsAny(tag, "{}[]\"") {
			inner = inner[idx+1:]
		}
	}
	return strings.TrimSpace(inner), true
}
