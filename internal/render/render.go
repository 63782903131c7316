// Package render produces output documents from a finished schema.Report.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/internal/parse"
	"github.com/draftforge/draftforge/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of the report
// artifact. The output round-trips through json.Unmarshal back to an equal
// Report.
func RenderJSON(report *schema.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a readable Markdown rendition of the report,
// decoding each section's JSON content according to its element type.
// Sections whose content does not decode are emitted verbatim so a
// best-effort section is still visible.
func RenderMarkdown(report *schema.Report) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", report.Title)
	fmt.Fprintf(&sb, "**Case:** %s | **Type:** %s | **Status:** %s\n\n",
		report.CaseID, report.Study, report.Status)
	if report.Error != "" {
		fmt.Fprintf(&sb, "> Generation halted: %s\n\n", mdEscape(report.Error))
	}

	for _, sec := range report.Sections {
		writeSection(&sb, sec)
	}

	m := report.Metadata.Metrics
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "**Sections answered:** %d/%d | **Confidence:** %.1f/5 | **Evidence items:** %d\n",
		m.AnsweredCount, m.QuestionCount, m.OverallConfidence, m.EvidenceCount)

	return sb.String()
}

func writeSection(sb *strings.Builder, sec schema.GeneratedSection) {
	switch sec.Element {
	case schema.ElementTitle:
		var td parse.TextData
		if json.Unmarshal([]byte(sec.Content), &td) == nil && td.Text != "" {
			fmt.Fprintf(sb, "# %s\n\n", td.Text)
		}
		return
	case schema.ElementHorizontalRule:
		sb.WriteString("---\n\n")
		return
	}

	if sec.Title != "" {
		fmt.Fprintf(sb, "## %s\n\n", sec.Title)
	}

	switch sec.Element {
	case schema.ElementList:
		var ld parse.ListData
		if json.Unmarshal([]byte(sec.Content), &ld) == nil {
			for _, item := range ld.Items {
				fmt.Fprintf(sb, "- %s\n", item)
			}
			sb.WriteString("\n")
			return
		}
	case schema.ElementTable:
		var td parse.TableData
		if json.Unmarshal([]byte(sec.Content), &td) == nil && len(td.Rows) > 0 {
			writeTable(sb, td.Rows)
			return
		}
	default:
		var td parse.TextData
		if json.Unmarshal([]byte(sec.Content), &td) == nil {
			fmt.Fprintf(sb, "%s\n\n", td.Text)
			return
		}
	}

	// Unvalidated best-effort content: show it as-is.
	fmt.Fprintf(sb, "%s\n\n", sec.Content)
}

// writeTable renders rows as a Markdown table, treating the first row as
// the header.
func writeTable(sb *strings.Builder, rows [][]string) {
	for i, row := range rows {
		sb.WriteString("|")
		for _, cell := range row {
			fmt.Fprintf(sb, " %s |", mdEscape(cell))
		}
		sb.WriteString("\n")
		if i == 0 {
			sb.WriteString("|")
			for range row {
				sb.WriteString("---|")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
