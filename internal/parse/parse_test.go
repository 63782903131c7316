package parse

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/draftforge/draftforge/internal/schema"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "json fence",
			raw:  "Here you go:\n```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "bare fence",
			raw:  "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "double json fence keeps first",
			raw:  "```json\n{\"first\": true}\n```\nAnd again:\n```json\n{\"second\": true}\n```",
			want: `{"first": true}`,
		},
		{
			name: "naked object",
			raw:  `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "object embedded in prose",
			raw:  `The result is {"a": 1} as requested.`,
			want: `{"a": 1}`,
		},
		{
			name: "array response",
			raw:  `[{"gap": "x", "query": "y"}]`,
			want: `[{"gap": "x", "query": "y"}]`,
		},
		{
			name: "invalid escapes recovered",
			raw:  `{"pattern": "\d+ days notice"}`,
			want: `{"pattern": "\\d+ days notice"}`,
		},
		{
			name: "nested braces in strings",
			raw:  `noise {"text": "a {curly} value"} noise`,
			want: `{"text": "a {curly} value"}`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ExtractJSON(c.raw)
			if err != nil {
				t.Fatalf("ExtractJSON(%q) error: %v", c.raw, err)
			}
			if strings.TrimSpace(string(got)) != c.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", c.raw, got, c.want)
			}
		})
	}
}

func TestExtractJSONFailure(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", "just : text"} {
		_, err := ExtractJSON(raw)
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("ExtractJSON(%q) error = %v, want ErrMalformedOutput", raw, err)
		}
	}
}

func TestExtractListPromotesSingleObject(t *testing.T) {
	gaps, err := ExtractList[schema.Gap](`{"gap": "missing date", "query": "termination date"}`)
	if err != nil {
		t.Fatalf("ExtractList error: %v", err)
	}
	if len(gaps) != 1 || gaps[0].Gap != "missing date" {
		t.Errorf("ExtractList = %+v, want one promoted entry", gaps)
	}
}

func TestExtractListArray(t *testing.T) {
	gaps, err := ExtractList[schema.Gap]("```json\n[{\"gap\":\"a\",\"query\":\"b\"},{\"gap\":\"c\",\"query\":\"d\"}]\n```")
	if err != nil {
		t.Fatalf("ExtractList error: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("ExtractList returned %d entries, want 2", len(gaps))
	}
}

func TestValidateShape(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		el      schema.ElementType
		wantKey string
		wantErr bool
	}{
		{"text ok", `{"textdata": "hello"}`, schema.ElementText, "textdata", false},
		{"text fenced", "```json\n{\"textdata\": \"hello\"}\n```", schema.ElementText, "textdata", false},
		{"list ok", `{"listdata": ["a", "b"]}`, schema.ElementList, "listdata", false},
		{"table ok", `{"tabledata": [["h1","h2"],["a","b"]]}`, schema.ElementTable, "tabledata", false},
		{"table mixed cells coerced", `{"tabledata": [["metric","value"],["count",42]]}`, schema.ElementTable, "tabledata", false},
		{"wrong key for element", `{"listdata": ["a"]}`, schema.ElementText, "", true},
		{"wrong value kind", `{"listdata": "not a list"}`, schema.ElementList, "", true},
		{"plain prose", "The contract may be terminated.", schema.ElementText, "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			content, err := ValidateShape(c.raw, c.el)
			if c.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("ValidateShape error = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateShape error: %v", err)
			}
			var m map[string]json.RawMessage
			if err := json.Unmarshal([]byte(content), &m); err != nil {
				t.Fatalf("content %q is not JSON: %v", content, err)
			}
			if len(m) != 1 {
				t.Errorf("content has %d keys, want exactly 1", len(m))
			}
			if _, ok := m[c.wantKey]; !ok {
				t.Errorf("content %q missing key %q", content, c.wantKey)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"~~~\ntext\n~~~", "text"},
		{"```json\ntruncated response", "truncated response"},
		{"no fences at all", "no fences at all"},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("StripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
