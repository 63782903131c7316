// Package parse extracts structured JSON values from free-form LLM text.
//
// Models wrap JSON in markdown fences, echo the same fence twice, emit prose
// around the value, or produce invalid escape sequences. ExtractJSON runs an
// ordered cascade of extraction strategies and returns the first value that
// parses; callers never see a parse panic from deep inside generation.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedOutput is returned when every extraction strategy fails.
// Callers treat it as a recoverable condition feeding the repair loop.
var ErrMalformedOutput = errors.New("parse: no JSON value found in model output")

// jsonFenceRe matches a ```json fenced block and captures its body. Only the
// first match is used, which also handles models that echo the same fenced
// output twice.
var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)```")

// bareFenceRe matches a fenced block with no language tag (``` or ~~~).
var bareFenceRe = regexp.MustCompile("(?s)(?:`{3}|~{3})[^\\n`]*\\n?(.*?)(?:`{3}|~{3})")

// invalidEscapeRe matches a backslash followed by a character that is not a
// valid JSON string escape. LLMs emit regex fragments like \d+ unescaped
// inside JSON strings; doubling the backslash makes the parser accept them.
var invalidEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// ExtractJSON locates and returns the first JSON object or array in raw.
// Strategies, first success wins:
//  1. first ```json fenced block
//  2. first bare fenced block
//  3. incremental decode of the raw text, scanning for the first valid value
//  4. array-shaped span for batch responses
//  5. first balanced {...} or [...] span after normalizing invalid escapes
func ExtractJSON(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformedOutput
	}

	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		if v, err := firstValue(m[1]); err == nil {
			return v, nil
		}
	}
	if m := bareFenceRe.FindStringSubmatch(raw); m != nil {
		if v, err := firstValue(m[1]); err == nil {
			return v, nil
		}
	}
	if v, err := firstValue(raw); err == nil {
		return v, nil
	}
	if v, err := balancedSpan(raw, '[', ']'); err == nil {
		return v, nil
	}
	if v, err := balancedSpan(raw, '{', '}'); err == nil {
		return v, nil
	}

	// Last resort: sanitize invalid escapes and retry the balanced spans.
	fixed := invalidEscapeRe.ReplaceAllString(raw, `\\$1`)
	if fixed != raw {
		if v, err := balancedSpan(fixed, '{', '}'); err == nil {
			return v, nil
		}
		if v, err := balancedSpan(fixed, '[', ']'); err == nil {
			return v, nil
		}
	}

	return nil, ErrMalformedOutput
}

// firstValue scans s left to right and decodes the first JSON object or
// array it finds. Scalar values are rejected: every shape the pipeline
// consumes is a composite.
func firstValue(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err == nil && json.Valid(v) {
			return v, nil
		}
	}
	return nil, ErrMalformedOutput
}

// balancedSpan locates the first balanced open..close span in s and attempts
// to parse it, once as-is and once with invalid escapes normalized.
func balancedSpan(s string, open, close byte) (json.RawMessage, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return nil, ErrMalformedOutput
	}
	depth := 0
	inString := false
	escaped := false
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				span := s[start : i+1]
				if json.Valid([]byte(span)) {
					return json.RawMessage(span), nil
				}
				fixed := invalidEscapeRe.ReplaceAllString(span, `\\$1`)
				if json.Valid([]byte(fixed)) {
					return json.RawMessage(fixed), nil
				}
				return nil, ErrMalformedOutput
			}
		}
	}
	return nil, ErrMalformedOutput
}

// ExtractObject decodes the first JSON value in raw into dst, which must be
// a pointer. An array value where an object is expected (or vice versa) is
// reported as ErrMalformedOutput wrapped with the decode detail.
func ExtractObject(raw string, dst any) error {
	v, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// ExtractList decodes raw into a slice of T. A single object is promoted to
// a one-element list so that callers can treat object-or-array responses
// uniformly (gap analysis relies on this).
func ExtractList[T any](raw string) ([]T, error) {
	v, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		return []T{one}, nil
	}
	var list []T
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return list, nil
}
