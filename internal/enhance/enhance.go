// Package enhance implements gap-driven section enhancement: an LLM
// critique identifies missing information, additional retrieval runs per
// identified gap, and a merge call folds any new context into the section.
//
// Failure of any one gap's retrieval never aborts the others or the
// section; partial results are used.
package enhance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/llm"
	"github.com/draftforge/draftforge/internal/parse"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/retrieval"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/section"
	"github.com/draftforge/draftforge/internal/textutil"
)

const (
	// maxGaps caps how many gaps one critique may produce. The gap fan-out
	// needs no semaphore because its cardinality is bounded here.
	maxGaps = 3

	// gapRetrieveK is k for each per-gap retrieval.
	gapRetrieveK = 3

	// evidenceMinLen matches the section generator's evidence threshold.
	evidenceMinLen = 20
)

// Enhancer runs gap analysis and enhancement for generated sections.
type Enhancer struct {
	retriever *retrieval.Retriever
	invoker   *llm.Invoker
	generator *section.Generator
	prompts   *prompt.Set
	logger    *logrus.Logger
}

// New creates an Enhancer.
func New(retriever *retrieval.Retriever, invoker *llm.Invoker, generator *section.Generator, prompts *prompt.Set, logger *logrus.Logger) *Enhancer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Enhancer{retriever: retriever, invoker: invoker, generator: generator, prompts: prompts, logger: logger}
}

// Enhance critiques sec for information gaps, retrieves additional context
// per gap, and regenerates the section when new context was found. sec is
// mutated in place; Enhanced is set only when an enhancement call replaced
// the content. Returns nil on the skip paths (no gap prompt, no gaps, no
// new context).
func (e *Enhancer) Enhance(ctx context.Context, sec *schema.GeneratedSection, cfg schema.SectionConfig, scope schema.Scope) error {
	if e.prompts.Gap == nil || e.prompts.Enhance == nil {
		return nil
	}
	if sec.Content == "" {
		return nil
	}

	gaps, err := e.findGaps(ctx, sec)
	if err != nil {
		// A malformed critique is a skip, not a failure.
		e.logger.WithError(err).WithField("section", sec.Title).Debug("gap analysis skipped")
		return nil
	}
	if len(gaps) == 0 {
		return nil
	}

	contexts, evidence := e.retrieveGaps(ctx, gaps, scope)
	if len(contexts) == 0 {
		return nil
	}

	merged, err := prompt.Render(e.prompts.Enhance, prompt.EnhanceData{
		Title:   sec.Title,
		Content: sec.Content,
		Context: strings.Join(contexts, "\n\n"),
		Shape:   prompt.ShapeInstruction(sec.Element),
	})
	if err != nil {
		return fmt.Errorf("enhance %q: %w", sec.Title, err)
	}

	raw, err := e.invoker.Generate(ctx, "enhance_section:"+sec.SectionID, e.prompts.System, merged)
	if err != nil {
		return fmt.Errorf("enhance %q: %w", sec.Title, err)
	}

	content, _ := e.generator.RepairContent(ctx, raw, sec.Element)
	sec.Content = content
	sec.Enhanced = true
	sec.Explanation.Evidence = appendUnique(sec.Explanation.Evidence, evidence)
	sec.Explanation.Steps = append(sec.Explanation.Steps, e.invoker.DrainSteps()...)
	return nil
}

// findGaps asks the LLM to critique the section and normalizes the
// response to at most maxGaps valid entries.
func (e *Enhancer) findGaps(ctx context.Context, sec *schema.GeneratedSection) ([]schema.Gap, error) {
	critique, err := prompt.Render(e.prompts.Gap, prompt.GapData{
		Title:   sec.Title,
		Content: sec.Content,
	})
	if err != nil {
		return nil, err
	}
	raw, err := e.invoker.Generate(ctx, "gap_analysis:"+sec.SectionID, e.prompts.System, critique)
	if err != nil {
		return nil, err
	}

	gaps, err := parse.ExtractList[schema.Gap](raw)
	if err != nil {
		return nil, err
	}
	var valid []schema.Gap
	for _, g := range gaps {
		if strings.TrimSpace(g.Gap) == "" || strings.TrimSpace(g.Query) == "" {
			continue
		}
		valid = append(valid, g)
		if len(valid) == maxGaps {
			break
		}
	}
	return valid, nil
}

// retrieveGaps runs one retrieval per gap concurrently and collects the
// non-empty contexts and their evidence sentences. Each goroutine writes
// only its own slot; a failed or empty retrieval leaves its slot nil.
func (e *Enhancer) retrieveGaps(ctx context.Context, gaps []schema.Gap, scope schema.Scope) (contexts []string, evidence []string) {
	results := make([]retrieval.Result, len(gaps))

	var wg sync.WaitGroup
	for i, g := range gaps {
		wg.Add(1)
		go func(i int, g schema.Gap) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.WithField("gap", g.Gap).Warnf("gap retrieval panicked: %v", r)
				}
			}()
			results[i] = e.retriever.Retrieve(ctx, g.Query, nil, gapRetrieveK, scope)
		}(i, g)
	}
	wg.Wait()

	for _, res := range results {
		if res.Empty() {
			continue
		}
		contexts = append(contexts, res.Context)
		texts := make([]string, len(res.Chunks))
		for i, c := range res.Chunks {
			texts[i] = c.Text
		}
		evidence = append(evidence, textutil.EvidenceSentences(texts, evidenceMinLen)...)
	}
	return contexts, evidence
}

func appendUnique(dst, add []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}
