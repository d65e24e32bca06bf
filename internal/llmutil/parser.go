// internal/llmutil/parser.go

// Package llmutil holds the small shared helpers for working with raw
// language-model output, chiefly digging a JSON payload out of whatever
// prose and markdown the model wrapped around it.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Fence patterns are assembled with \x60 because Go raw strings cannot
// contain backticks.
var (
	fencedObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	fencedArrayRegex  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ParseJSONResponse unmarshals the JSON payload of a model response into T.
// Chat models rarely answer with bare JSON: the payload usually sits inside a
// markdown fence or between sentences of prose. Extraction tries a fenced
// block first, then the outermost object or array boundaries, and finally
// the raw text, so the unmarshal error names what the model actually said.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := ExtractJSON(response)

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w (extracted: %s)", err, Truncate(payload, 200))
	}
	return &result, nil
}

// ExtractJSON returns the most plausible JSON payload inside a model
// response. When no structure is recognizable the trimmed response itself
// comes back unchanged.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "\x60\x60\x60") {
		if m := fencedObjectRegex.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		if m := fencedArrayRegex.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}

	// No usable fence; fall back to the outermost brackets. Objects win over
	// arrays so an element list quoted inside prose cannot shadow the action.
	if span, ok := outermost(response, '{', '}'); ok {
		return span
	}
	if span, ok := outermost(response, '[', ']'); ok {
		return span
	}
	return response
}

// outermost cuts the first-open to last-close span when both exist in order.
func outermost(s string, open, close byte) (string, bool) {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first == -1 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// Truncate bounds s for embedding in error messages and log fields.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
