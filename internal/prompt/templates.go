package prompt

// Section-generation templates. Context and Previous are pre-assembled
// blocks; Shape carries the JSON output contract for the element type.

const sectionContentTmpl = `Write the "{{.Title}}" section of the report.

Section purpose: {{.Description}}

Previously written sections:
{{if .Previous}}{{.Previous}}{{else}}(none){{end}}

Source material:
{{if .Context}}{{.Context}}{{else}}(no source material was retrieved; state that the record lacks information on this topic){{end}}

Requirements:
- Maximum {{.MaxWords}} words.
{{if .Formatting}}- Formatting: {{.Formatting}}
{{end}}{{if .Example}}- Generic example of the expected register (do not copy its facts): {{.Example}}
{{end}}
{{.Shape}}`

const sectionStructuralTmpl = `Produce the "{{.Title}}" structural section of the report.

Purpose: {{.Description}}

Previously written sections:
{{if .Previous}}{{.Previous}}{{else}}(none){{end}}

Source material:
{{if .Context}}{{.Context}}{{else}}(none){{end}}

Keep it under {{.MaxWords}} words. Derive structure from the source material and prior sections; do not introduce new facts.

{{.Shape}}`

const sectionFormattingTmpl = `Produce the "{{.Title}}" formatting element.

Purpose: {{.Description}}
{{if .Example}}Example: {{.Example}}
{{end}}
{{.Shape}}`

// reformatTmpl is the repair prompt used by the validation loop when model
// output does not match the required JSON shape.
const reformatTmpl = `Your previous output did not match the required JSON shape.

Previous output:
{{.Bad}}

{{.Shape}}

Re-emit the same content in exactly that shape. Output the JSON object only.`

const gapTmpl = `Review the "{{.Title}}" section below and identify up to 3 pieces of missing information that additional document search could fill.

Section content:
{{.Content}}

Respond with ONLY a JSON array of the form:
[{"gap": "what is missing", "query": "search query to find it"}]

Return [] if nothing important is missing.`

const enhanceTmpl = `Improve the "{{.Title}}" section using the additional source material below. Merge the new information into the existing content; keep everything that is already supported.

Current content:
{{.Content}}

Additional source material:
{{.Context}}

{{.Shape}}`

const coherenceWholeTmpl = `Review the complete report below for cross-section coherence problems: contradictory facts, inconsistent dates or names, duplicated passages, and abrupt topic breaks.

{{.Report}}

Respond with ONLY a JSON object of the form:
{"overall_assessment": "...", "issues": [{"affected_sections": ["Section Title"], "description": "...", "suggested_revision": "..."}]}

Return an empty issues array if the report is coherent.`

const coherencePairTmpl = `Review the two adjacent report sections below for coherence problems between them: contradictory facts, inconsistent dates or names, duplicated passages, and abrupt transitions.

First section:
{{.First}}

Second section:
{{.Second}}

Respond with ONLY a JSON object of the form:
{"overall_assessment": "...", "issues": [{"affected_sections": ["Section Title"], "description": "...", "suggested_revision": "..."}]}

Return an empty issues array if the pair is coherent.`

const revisionTmpl = `Revise the "{{.Title}}" section to resolve the coherence issues listed below. Change only what the issues require; keep all other content intact.

Current content:
{{.Content}}

Issues:
{{.Issues}}

{{.Shape}}`
