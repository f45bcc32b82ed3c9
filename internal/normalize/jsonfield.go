package normalize

import (
	"encoding/json"
	"strings"
)

// JSONResult is the outcome of decoding a cell that may or may not already
// hold JSON. Exactly one of Value (Decoded) or Text (ParseFailed) is
// meaningful, selected by Failed.
type JSONResult struct {
	Value  any
	Text   string
	Failed bool
}

// DecodeJSON decodes s once. Callers branch on Failed instead of re-checking
// the shape of the input.
func DecodeJSON(s string) JSONResult {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return JSONResult{Text: s, Failed: true}
	}
	return JSONResult{Value: v}
}

// JSONValue normalizes a JSON column. Decoded arrays and objects are
// re-encoded canonically; anything else is treated as a comma separated tag
// list and stored as a JSON array of strings. Empty input yields nil.
func JSONValue(s string) any {
	c := CleanText(s)
	if IsNullToken(c) {
		return nil
	}

	r := DecodeJSON(c)
	if !r.Failed {
		switch r.Value.(type) {
		case []any, map[string]any:
			b, err := json.Marshal(r.Value)
			if err == nil {
				return string(b)
			}
		}
	}

	tags := SplitTags(c)
	if len(tags) == 0 {
		return nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(b)
}

// SplitTags splits a comma separated list, trimming entries and dropping
// empty or null-token ones.
func SplitTags(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if IsNullToken(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
