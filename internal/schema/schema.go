// Package schema defines all canonical data types for the draftforge
// report-generation pipeline.
package schema

import "time"

// StudyType identifies which built-in prompt and section-config table a
// report is generated from. It is a closed enum resolved once at startup;
// the pipeline never branches on raw study-type strings.
type StudyType string

const (
	StudyLegalStatement StudyType = "legal_statement"
	StudyCaseStudy      StudyType = "case_study"
	StudyCustom         StudyType = "custom"
)

// ElementType is the structural shape a section's content must conform to.
type ElementType string

const (
	ElementText           ElementType = "text"
	ElementList           ElementType = "list"
	ElementTable          ElementType = "table"
	ElementTitle          ElementType = "title"
	ElementHorizontalRule ElementType = "horizontal_rule"
)

// ContentType classifies how a section is produced. Content and structural
// sections run retrieval; formatting sections are rendered from the prompt
// alone; title and horizontal_rule elements are emitted without an LLM call.
type ContentType string

const (
	ContentGenerated  ContentType = "content"
	ContentStructural ContentType = "structural"
	ContentFormatting ContentType = "formatting"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusDraft         ReportStatus = "draft"
	StatusPendingReview ReportStatus = "pending_review"
	StatusPublished     ReportStatus = "published"
	StatusError         ReportStatus = "error"
)

// RetrievedChunk is one ranked fragment returned by search and reranking.
// Chunks live for the duration of a single retrieval call.
type RetrievedChunk struct {
	Text       string  `json:"text"`
	SourceName string  `json:"source_document_name"`
	SourceID   string  `json:"source_document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"relevance_score"`
}

// SectionConfig is the static descriptor for one report section. Config
// tables are loaded once per study type and are read-only during generation.
type SectionConfig struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Element        ElementType `json:"element_type"`
	Content        ContentType `json:"content_type"`
	QueryTemplates []string    `json:"query_templates"`
	MaxWords       int         `json:"max_words"`
	Formatting     []string    `json:"formatting,omitempty"`
	Example        string      `json:"example,omitempty"`
}

// ProcessingStep records one unit of pipeline work for explainability.
type ProcessingStep struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

// Explanation carries the evidence and confidence trail for one section.
type Explanation struct {
	Evidence         []string         `json:"evidence,omitempty"`
	Reasoning        string           `json:"reasoning,omitempty"`
	Confidence       float64          `json:"confidence"`
	RetrievalQuality float64          `json:"retrieval_quality"`
	SystemConfidence float64          `json:"system_confidence"`
	Sources          []string         `json:"sources,omitempty"`
	Steps            []ProcessingStep `json:"processing_steps,omitempty"`
}

// GeneratedSection is one completed report section. Content holds a JSON
// document matching the section's element type: {"textdata": "..."} for
// text, {"listdata": [...]} for list, {"tabledata": [[...]]} for table.
type GeneratedSection struct {
	SectionID   string      `json:"section_id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Element     ElementType `json:"element_type"`
	ContentType ContentType `json:"content_type"`
	Formatting  []string    `json:"formatting,omitempty"`
	Enhanced    bool        `json:"enhanced"`
	Explanation Explanation `json:"explanation"`
}

// Gap is one LLM-identified piece of missing information paired with a
// follow-up search query. Gaps are consumed immediately by enhancement.
type Gap struct {
	Gap   string `json:"gap"`
	Query string `json:"query"`
}

// CoherenceIssue is one cross-section inconsistency found during review.
// AffectedSections names sections by title, never by index.
type CoherenceIssue struct {
	AffectedSections  []string `json:"affected_sections"`
	Description       string   `json:"description"`
	SuggestedRevision string   `json:"suggested_revision"`
}

// CoherenceResult is the parsed output of a coherence review call.
type CoherenceResult struct {
	OverallAssessment string           `json:"overall_assessment"`
	Issues            []CoherenceIssue `json:"issues"`
}

// ReportMetrics accumulates over the lifetime of one report generation and
// is finalized exactly once at completion.
type ReportMetrics struct {
	StartedAt          time.Time `json:"started_at"`
	CompletedAt        time.Time `json:"completed_at"`
	QuestionCount      int       `json:"question_count"`
	AnsweredCount      int       `json:"answered_count"`
	OverallConfidence  float64   `json:"overall_confidence"`
	LowConfidenceCount int       `json:"low_confidence_count"`
	EvidenceCount      int       `json:"evidence_count"`
	ProcessingSeconds  float64   `json:"processing_time_seconds"`
}

// ReportMetadata is the metadata block of the persisted report artifact.
type ReportMetadata struct {
	DocumentCount      int                `json:"document_count"`
	Metrics            ReportMetrics      `json:"generation_metrics"`
	CoherenceScores    map[string]float64 `json:"coherence_scores,omitempty"`
	EnhancementHistory []string           `json:"enhancement_history,omitempty"`
}

// Report is the top-level generated artifact. It is created empty by the
// caller and owned exclusively by the orchestrator until generation ends.
type Report struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	CaseID   string             `json:"case_id"`
	Study    StudyType          `json:"study_type"`
	Status   ReportStatus       `json:"status"`
	Error    string             `json:"error,omitempty"`
	Sections []GeneratedSection `json:"sections"`
	Metadata ReportMetadata     `json:"metadata"`
}

// Scope restricts retrieval to one case and, optionally, an explicit
// document allow-list.
type Scope struct {
	CaseID string   `json:"case_id,omitempty"`
	DocIDs []string `json:"doc_ids,omitempty"`
}

// Empty reports whether the scope constrains nothing.
func (s Scope) Empty() bool {
	return s.CaseID == "" && len(s.DocIDs) == 0
}

// ParseStudyType converts a string to a StudyType constant.
// Returns false for unrecognized values.
func ParseStudyType(s string) (StudyType, bool) {
	switch StudyType(s) {
	case StudyLegalStatement, StudyCaseStudy, StudyCustom:
		return StudyType(s), true
	}
	return "", false
}
