package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
)

// ParseModelJSON decodes a single JSON object from chat-model output that may be:
// - Pure JSON
// - JSON wrapped in markdown code blocks (```json ... ```)
// - JSON with surrounding text
// Decoding is strict: the object must be well formed and its values must match
// the target's field types. Malformed JSON is never repaired.
func ParseModelJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("empty input")
	}

	var lastErr error
	for _, candidate := range jsonCandidates(input) {
		if err := decodeObject(candidate, target); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return fmt.Errorf("failed to parse JSON from input %q: %w", truncateString(input, 100), lastErr)
}

// jsonCandidates lists the substrings worth decoding, most literal first
func jsonCandidates(input string) []string {
	candidates := []string{input}
	if extracted := extractFromMarkdown(input); extracted != "" {
		candidates = append(candidates, extracted)
	}
	if extracted := extractEmbeddedObject(input); extracted != "" {
		candidates = append(candidates, extracted)
	}
	return candidates
}

// extractEmbeddedObject returns the single object in prose such as
// "Here you go: {...} hope it helps". Text around the object must carry no
// other JSON structure, so arrays and concatenated objects are rejected.
func extractEmbeddedObject(input string) string {
	start := strings.Index(input, "{")
	if start < 0 || strings.ContainsAny(input[:start], "[]") {
		return ""
	}
	extracted := extractBalancedBraces(input[start:], '{', '}')
	if extracted == "" {
		return ""
	}
	if strings.ContainsAny(input[start+len(extracted):], "{}[]") {
		return ""
	}
	return extracted
}

// decodeObject decodes exactly one JSON object with nothing after it.
// target is reset first so a failed attempt never leaks partial values.
func decodeObject(s string, target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	rv.Elem().Set(reflect.Zero(rv.Elem().Type()))

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return fmt.Errorf("not a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(target); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// extractFromMarkdown extracts JSON from markdown code blocks
// Supports: ```json {...} ```, ```{...}```, or ```\n{...}\n```
func extractFromMarkdown(input string) string {
	if matches := fencedJSON.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}
	return ""
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	if len(input) == 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
