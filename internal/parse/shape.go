package parse

import (
	"encoding/json"
	"fmt"

	"github.com/draftforge/draftforge/internal/schema"
)

// TextData is the required shape for text-element sections.
type TextData struct {
	Text string `json:"textdata"`
}

// ListData is the required shape for list-element sections.
type ListData struct {
	Items []string `json:"listdata"`
}

// TableData is the required shape for table-element sections.
type TableData struct {
	Rows [][]string `json:"tabledata"`
}

// shapeKey returns the JSON key an element type's content must carry.
func shapeKey(el schema.ElementType) string {
	switch el {
	case schema.ElementList:
		return "listdata"
	case schema.ElementTable:
		return "tabledata"
	default:
		return "textdata"
	}
}

// ValidateShape checks that raw LLM text contains a JSON object with exactly
// the key required by the element type, carrying a non-null value of the
// right kind. On success it returns the canonical re-marshaled content
// string; on failure it returns ErrMalformedOutput with detail.
func ValidateShape(raw string, el schema.ElementType) (string, error) {
	v, err := ExtractJSON(raw)
	if err != nil {
		return "", err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(v, &probe); err != nil {
		return "", fmt.Errorf("%w: content is not a JSON object", ErrMalformedOutput)
	}
	key := shapeKey(el)
	body, ok := probe[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required key %q", ErrMalformedOutput, key)
	}

	switch el {
	case schema.ElementList:
		var items []string
		if err := json.Unmarshal(body, &items); err != nil {
			return "", fmt.Errorf("%w: %q is not a string array", ErrMalformedOutput, key)
		}
		return marshalShape(ListData{Items: items})
	case schema.ElementTable:
		var rows [][]string
		if err := json.Unmarshal(body, &rows); err != nil {
			// Tables sometimes arrive with mixed-type cells; coerce them.
			var loose [][]any
			if err2 := json.Unmarshal(body, &loose); err2 != nil {
				return "", fmt.Errorf("%w: %q is not a row array", ErrMalformedOutput, key)
			}
			rows = make([][]string, len(loose))
			for i, row := range loose {
				rows[i] = make([]string, len(row))
				for j, cell := range row {
					rows[i][j] = fmt.Sprintf("%v", cell)
				}
			}
		}
		return marshalShape(TableData{Rows: rows})
	default:
		var text string
		if err := json.Unmarshal(body, &text); err != nil {
			return "", fmt.Errorf("%w: %q is not a string", ErrMalformedOutput, key)
		}
		return marshalShape(TextData{Text: text})
	}
}

func marshalShape(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("parse: marshal shape: %w", err)
	}
	return string(b), nil
}
