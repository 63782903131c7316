// Package prompt defines the per-study-type prompt sets and section tables
// that drive report generation. Study types form a closed enum resolved to
// an immutable Set at startup; nothing deeper in the pipeline branches on
// raw study-type strings.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/draftforge/draftforge/internal/schema"
)

// Set is the full prompt complement for one study type. Gap and Enhance may
// be nil, which disables gap-driven enhancement for that study type.
type Set struct {
	Study  schema.StudyType
	System string

	Section  map[schema.ContentType]*template.Template
	Reformat *template.Template
	Gap      *template.Template
	Enhance  *template.Template

	CoherenceWhole *template.Template
	CoherencePair  *template.Template
	Revision       *template.Template

	Sections []schema.SectionConfig
}

// registry maps each built-in study type to its immutable prompt set.
// Populated once at package init.
var registry = map[schema.StudyType]*Set{}

func init() {
	registry[schema.StudyLegalStatement] = buildSet(schema.StudyLegalStatement, legalSections)
	registry[schema.StudyCaseStudy] = buildSet(schema.StudyCaseStudy, caseStudySections)
}

// Get returns the prompt set for a built-in study type.
func Get(study schema.StudyType) (*Set, error) {
	s, ok := registry[study]
	if !ok {
		return nil, fmt.Errorf("prompt: no prompt set for study type %q", study)
	}
	return s, nil
}

// Custom builds a prompt set for a caller-supplied section table, reusing
// the shared template complement.
func Custom(sections []schema.SectionConfig) *Set {
	s := buildSet(schema.StudyCustom, nil)
	s.Sections = sections
	return s
}

// SectionData is the render input for a section-generation prompt.
type SectionData struct {
	Title       string
	Description string
	Context     string
	Previous    string
	MaxWords    int
	Formatting  string
	Example     string
	Shape       string
}

// ReformatData is the render input for a repair prompt.
type ReformatData struct {
	Bad   string
	Shape string
}

// GapData is the render input for a gap-analysis prompt.
type GapData struct {
	Title   string
	Content string
}

// EnhanceData is the render input for an enhancement prompt.
type EnhanceData struct {
	Title   string
	Content string
	Context string
	Shape   string
}

// CoherenceData is the render input for a whole-report or pair review.
type CoherenceData struct {
	Report string
	First  string
	Second string
}

// RevisionData is the render input for a coherence revision prompt.
type RevisionData struct {
	Title   string
	Content string
	Issues  string
	Shape   string
}

// Render executes t with data. A nil template is an error so callers can
// distinguish "prompt not defined for this study type" explicitly.
func Render(t *template.Template, data any) (string, error) {
	if t == nil {
		return "", fmt.Errorf("prompt: template not defined")
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}

// ShapeInstruction returns the JSON output-shape contract embedded in
// generation, repair, enhancement, and revision prompts.
func ShapeInstruction(el schema.ElementType) string {
	switch el {
	case schema.ElementList:
		return `Respond with ONLY a JSON object of the form {"listdata": ["item 1", "item 2"]}. Each item is one plain-text entry. No prose outside the JSON.`
	case schema.ElementTable:
		return `Respond with ONLY a JSON object of the form {"tabledata": [["header A", "header B"], ["cell", "cell"]]}. The first row is the header row. No prose outside the JSON.`
	default:
		return `Respond with ONLY a JSON object of the form {"textdata": "your full text here"}. No prose outside the JSON.`
	}
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

func buildSet(study schema.StudyType, sections []schema.SectionConfig) *Set {
	return &Set{
		Study:  study,
		System: systemPrompt(study),
		Section: map[schema.ContentType]*template.Template{
			schema.ContentGenerated:  mustParse("section_content", sectionContentTmpl),
			schema.ContentStructural: mustParse("section_structural", sectionStructuralTmpl),
			schema.ContentFormatting: mustParse("section_formatting", sectionFormattingTmpl),
		},
		Reformat:       mustParse("reformat", reformatTmpl),
		Gap:            mustParse("gap", gapTmpl),
		Enhance:        mustParse("enhance", enhanceTmpl),
		CoherenceWhole: mustParse("coherence_whole", coherenceWholeTmpl),
		CoherencePair:  mustParse("coherence_pair", coherencePairTmpl),
		Revision:       mustParse("revision", revisionTmpl),
		Sections:       sections,
	}
}

func systemPrompt(study schema.StudyType) string {
	base := "You are a document drafting assistant producing sections of a long-form report " +
		"from retrieved source material. Ground every statement in the provided context. " +
		"When the context does not support a claim, say so rather than inventing detail. " +
		"Always answer in the exact JSON shape requested.\n"
	switch study {
	case schema.StudyLegalStatement:
		return base + "The report is a formal legal statement. Use precise, neutral legal drafting " +
			"language. Cite the source label (e.g. Source 2) for every factual assertion."
	case schema.StudyCaseStudy:
		return base + "The report is a professional case study. Write clearly for a non-specialist " +
			"reader and keep each section self-contained."
	default:
		return base + "Follow the per-section descriptions exactly."
	}
}
