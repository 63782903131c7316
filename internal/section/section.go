// Package section generates one report section: retrieval over the
// section's query templates, prompt rendering per element type, LLM
// invocation, and the output-shape validation/repair loop.
package section

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/llm"
	"github.com/draftforge/draftforge/internal/parse"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/retrieval"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/textutil"
)

const (
	// maxRepairAttempts caps LLM reformat calls after the initial generation.
	maxRepairAttempts = 3

	// retrievePerQuery is k for each query-template retrieval.
	retrievePerQuery = 10

	// chunkCap bounds merged context size; chunkCapFeedback applies when
	// feedback-driven extra queries are present.
	chunkCap         = 15
	chunkCapFeedback = 20

	// evidenceMinLen is the minimum length of an extracted evidence sentence.
	evidenceMinLen = 20
)

// Generator produces report sections.
type Generator struct {
	retriever *retrieval.Retriever
	invoker   *llm.Invoker
	prompts   *prompt.Set
	logger    *logrus.Logger
}

// New creates a Generator.
func New(retriever *retrieval.Retriever, invoker *llm.Invoker, prompts *prompt.Set, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Generator{retriever: retriever, invoker: invoker, prompts: prompts, logger: logger}
}

// Generate produces one section. prior carries previously generated sections
// (title and content are embedded in the prompt); extraQueries are
// feedback-driven follow-up queries merged with the config's templates.
func (g *Generator) Generate(
	ctx context.Context,
	cfg schema.SectionConfig,
	scope schema.Scope,
	prior []schema.GeneratedSection,
	extraQueries []string,
) (schema.GeneratedSection, error) {
	sec := schema.GeneratedSection{
		SectionID:   cfg.ID,
		Title:       cfg.Title,
		Element:     cfg.Element,
		ContentType: cfg.Content,
		Formatting:  cfg.Formatting,
	}

	// Title and rule elements are fixed content; no retrieval, no LLM.
	if fixed, ok := fixedContent(cfg); ok {
		sec.Content = fixed
		sec.Explanation.Confidence = 5
		sec.Explanation.SystemConfidence = 5
		return sec, nil
	}

	var retrieved retrieval.Result
	if cfg.Content == schema.ContentGenerated || cfg.Content == schema.ContentStructural {
		retrieved = g.retrieve(ctx, cfg, scope, extraQueries)
	}

	userPrompt, err := g.renderPrompt(cfg, retrieved.Context, prior)
	if err != nil {
		return sec, err
	}

	raw, err := g.invoker.Generate(ctx, "generate_section:"+cfg.ID, g.prompts.System, userPrompt)
	if err != nil {
		return sec, fmt.Errorf("section %q: %w", cfg.Title, err)
	}

	content, valid := g.repairLoop(ctx, raw, cfg.Element)
	sec.Content = content

	g.explain(&sec, retrieved, valid)
	return sec, nil
}

// RepairContent re-validates replacement content produced outside the
// generator (coherence revision reuses the same loop and policy).
func (g *Generator) RepairContent(ctx context.Context, raw string, el schema.ElementType) (string, bool) {
	return g.repairLoop(ctx, raw, el)
}

// fixedContent returns the canned content for non-generated elements.
func fixedContent(cfg schema.SectionConfig) (string, bool) {
	switch cfg.Element {
	case schema.ElementTitle:
		return fmt.Sprintf("{\"textdata\":%q}", cfg.Title), true
	case schema.ElementHorizontalRule:
		return `{"textdata":"---"}`, true
	}
	return "", false
}

// retrieve runs one retrieval per query template, merges and dedupes the
// chunks, re-sorts by score, and caps the context size.
func (g *Generator) retrieve(ctx context.Context, cfg schema.SectionConfig, scope schema.Scope, extraQueries []string) retrieval.Result {
	queries := append(append([]string{}, cfg.QueryTemplates...), extraQueries...)

	var all []schema.RetrievedChunk
	var steps []schema.ProcessingStep
	seen := make(map[string]bool)
	for _, q := range queries {
		res := g.retriever.Retrieve(ctx, q, nil, retrievePerQuery, scope)
		steps = append(steps, res.Steps...)
		for _, c := range res.Chunks {
			if seen[c.Text] {
				continue
			}
			seen[c.Text] = true
			all = append(all, c)
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	limit := chunkCap
	if len(extraQueries) > 0 {
		limit = chunkCapFeedback
	}
	if len(all) > limit {
		all = all[:limit]
	}

	var merged retrieval.Result
	merged.Steps = steps
	var blocks []string
	for i, c := range all {
		label := c.SourceName
		if label == "" {
			label = c.SourceID
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s", i+1, label, c.Text))
		merged.Chunks = append(merged.Chunks, c)
		merged.Sources = append(merged.Sources, label)
		merged.Scores = append(merged.Scores, c.Score)
	}
	merged.Context = strings.Join(blocks, "\n\n")
	return merged
}

// renderPrompt renders the element-type-specific prompt for this section.
func (g *Generator) renderPrompt(cfg schema.SectionConfig, context string, prior []schema.GeneratedSection) (string, error) {
	tmpl, ok := g.prompts.Section[cfg.Content]
	if !ok {
		return "", fmt.Errorf("section %q: no prompt template for content type %q", cfg.Title, cfg.Content)
	}
	data := prompt.SectionData{
		Title:       cfg.Title,
		Description: cfg.Description,
		Context:     context,
		Previous:    PriorText(prior),
		MaxWords:    cfg.MaxWords,
		Formatting:  strings.Join(cfg.Formatting, ", "),
		Example:     cfg.Example,
		Shape:       prompt.ShapeInstruction(cfg.Element),
	}
	return prompt.Render(tmpl, data)
}

// PriorText renders previously generated sections (title + content only)
// for inclusion in prompts.
func PriorText(prior []schema.GeneratedSection) string {
	var sb strings.Builder
	for _, s := range prior {
		if s.Title == "" || s.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n%s\n\n", s.Title, s.Content)
	}
	return strings.TrimSpace(sb.String())
}

// repairLoop validates raw output against the element shape, issuing up to
// maxRepairAttempts reformat calls. On exhaustion it returns the last raw
// text stripped of fences, with valid=false. Availability over strictness:
// the pipeline is never blocked by a stubborn model.
func (g *Generator) repairLoop(ctx context.Context, raw string, el schema.ElementType) (string, bool) {
	if content, err := parse.ValidateShape(raw, el); err == nil {
		return content, true
	}

	for attempt := 1; attempt <= maxRepairAttempts; attempt++ {
		reformat, err := prompt.Render(g.prompts.Reformat, prompt.ReformatData{
			Bad:   raw,
			Shape: prompt.ShapeInstruction(el),
		})
		if err != nil {
			break
		}
		fixed, err := g.invoker.Generate(ctx, fmt.Sprintf("reformat_attempt_%d", attempt), g.prompts.System, reformat)
		if err != nil {
			g.logger.WithError(err).WithField("attempt", attempt).Warn("reformat call failed")
			continue
		}
		raw = fixed
		if content, err := parse.ValidateShape(raw, el); err == nil {
			return content, true
		}
	}

	g.logger.WithField("element", el).Warn("shape validation exhausted; accepting stripped raw output")
	return parse.StripFences(raw), false
}

// explain fills the section explanation from the retrieval result and the
// LLM call log.
func (g *Generator) explain(sec *schema.GeneratedSection, retrieved retrieval.Result, valid bool) {
	texts := make([]string, len(retrieved.Chunks))
	for i, c := range retrieved.Chunks {
		texts[i] = c.Text
	}
	sec.Explanation.Evidence = textutil.EvidenceSentences(texts, evidenceMinLen)
	sec.Explanation.Sources = dedupe(retrieved.Sources)
	sec.Explanation.RetrievalQuality = meanScore(retrieved.Scores)

	// Confidence on a 1-5 scale from retrieval quality, discounted when the
	// output shape could not be validated.
	conf := 1.0 + 4.0*clamp01(sec.Explanation.RetrievalQuality)
	if !valid {
		conf = conf / 2
	}
	sec.Explanation.Confidence = conf
	sec.Explanation.SystemConfidence = conf

	sec.Explanation.Steps = append(retrieved.Steps, g.invoker.DrainSteps()...)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
