// internal/reasoning/parse.go
package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cv-pipeline/internal/common/validation"
)

var (
	ErrNoJSON         = errors.New("NO_JSON_FOUND")
	ErrSchemaMismatch = errors.New("SCHEMA_MISMATCH")
	ErrDecode         = errors.New("DECODE_FAILED")
)

var (
	fencePattern         = regexp.MustCompile("```[A-Za-z]*")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls the JSON value out of a model response. Code fences and
// trailing commas are removed first; if the remainder still does not parse,
// the first balanced object or array is used.
func ExtractJSON(text string) (json.RawMessage, bool) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, false
	}
	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), true
	}
	if candidate, ok := firstBalanced(cleaned); ok && json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}
	return nil, false
}

// Decode parses text into T. On any failure it returns fallback() together
// with the reason, so callers can log and carry on.
func Decode[T any](text string, schema *validation.Schema, fallback func() T) (T, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return fallback(), ErrNoJSON
	}

	if schema != nil {
		if result := schema.ValidateBytes(raw); !result.Valid {
			return fallback(), fmt.Errorf("%w: %s", ErrSchemaMismatch, result.Error())
		}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback(), fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}

func cleanJSON(text string) string {
	s := fencePattern.ReplaceAllString(text, "")
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// firstBalanced returns the first complete {...} or [...] span in s.
func firstBalanced(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' && s[start] != '[' {
			continue
		}
		if end := closingIndex(s, start); end > 0 {
			return s[start : end+1], true
		}
	}
	return "", false
}

func closingIndex(s string, start int) int {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// preview shortens a model response for log fields.
func preview(text string) string {
	const limit = 200
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
