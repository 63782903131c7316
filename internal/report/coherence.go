package report

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/draftforge/draftforge/internal/parse"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/section"
)

// review critiques the assembled report for cross-section inconsistencies.
// Small reports are reviewed in one whole-report call; larger ones as
// adjacent pairs under the shared concurrency limit. Review failures yield
// zero issues, never an error.
func (o *Orchestrator) review(ctx context.Context, sections []schema.GeneratedSection) []schema.CoherenceIssue {
	reviewable := contentSections(sections)
	if len(reviewable) < 2 {
		return nil
	}
	if len(reviewable) <= pairReviewThreshold {
		return o.reviewWhole(ctx, reviewable)
	}
	return o.reviewPairs(ctx, reviewable)
}

func (o *Orchestrator) reviewWhole(ctx context.Context, sections []schema.GeneratedSection) []schema.CoherenceIssue {
	body, err := prompt.Render(o.prompts.CoherenceWhole, prompt.CoherenceData{
		Report: section.PriorText(sections),
	})
	if err != nil {
		o.logger.WithError(err).Warn("coherence review prompt failed; skipping review")
		return nil
	}
	raw, err := o.invoker.Generate(ctx, "coherence_review", o.prompts.System, body)
	if err != nil {
		o.logger.WithError(err).Warn("coherence review call failed; skipping review")
		return nil
	}
	var result schema.CoherenceResult
	if err := parse.ExtractObject(raw, &result); err != nil {
		o.logger.WithError(err).Warn("coherence review output malformed; skipping review")
		return nil
	}
	return result.Issues
}

// reviewPairs reviews adjacent section pairs (i, i+1) concurrently. Each
// task writes only its own result slot; a failed pair contributes no
// issues and never cancels its siblings.
func (o *Orchestrator) reviewPairs(ctx context.Context, sections []schema.GeneratedSection) []schema.CoherenceIssue {
	pairCount := len(sections) - 1
	results := make([][]schema.CoherenceIssue, pairCount)

	var g errgroup.Group
	for i := 0; i < pairCount; i++ {
		i := i
		first, second := sections[i], sections[i+1]
		g.Go(func() error {
			if err := o.sem.Acquire(ctx); err != nil {
				return nil
			}
			defer o.sem.Release()

			body, err := prompt.Render(o.prompts.CoherencePair, prompt.CoherenceData{
				First:  fmt.Sprintf("## %s\n%s", first.Title, first.Content),
				Second: fmt.Sprintf("## %s\n%s", second.Title, second.Content),
			})
			if err != nil {
				o.logger.WithError(err).Warn("pair review prompt failed; skipping pair")
				return nil
			}
			raw, err := o.invoker.Generate(ctx, fmt.Sprintf("coherence_pair:%s|%s", first.Title, second.Title), o.prompts.System, body)
			if err != nil {
				o.logger.WithError(err).Warn("pair review call failed; skipping pair")
				return nil
			}
			var result schema.CoherenceResult
			if err := parse.ExtractObject(raw, &result); err != nil {
				o.logger.WithError(err).Warn("pair review output malformed; skipping pair")
				return nil
			}
			results[i] = result.Issues
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; Wait is the join point

	var merged []schema.CoherenceIssue
	for _, issues := range results {
		merged = append(merged, issues...)
	}
	return merged
}

// fix revises only the sections named in detected issues, under the shared
// concurrency limit, and returns the per-section coherence scores. Each
// fan-out task mutates only its own section's content by index, so
// concurrent writers never touch the same memory. A failed revision leaves
// the pre-fix content in place.
func (o *Orchestrator) fix(ctx context.Context, report *schema.Report, issues []schema.CoherenceIssue) map[string]float64 {
	byTitle := groupIssues(issues)

	titleIndex := make(map[string]int, len(report.Sections))
	for i, sec := range report.Sections {
		if sec.Title != "" {
			titleIndex[sec.Title] = i
		}
	}

	// The reviewer occasionally names a section that does not exist
	// (typo or hallucinated title). Surface it instead of silently
	// dropping the issue.
	for title := range byTitle {
		if _, ok := titleIndex[title]; !ok {
			o.logger.WithField("section", title).Warn("coherence issue names unknown section; skipping")
		}
	}

	scores := make(map[string]float64, len(titleIndex))
	for title := range titleIndex {
		scores[title] = 1.0
	}

	var mu sync.Mutex
	var g errgroup.Group
	for title, secIssues := range byTitle {
		title, secIssues := title, secIssues
		idx, ok := titleIndex[title]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := o.sem.Acquire(ctx); err != nil {
				return nil
			}
			defer o.sem.Release()

			if o.reviseSection(ctx, &report.Sections[idx], secIssues) {
				mu.Lock()
				scores[title] -= 0.1 * float64(len(secIssues))
				if scores[title] < 0 {
					scores[title] = 0
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return scores
}

// reviseSection applies one combined revision call for all of a section's
// issues. Returns true when the content was replaced.
func (o *Orchestrator) reviseSection(ctx context.Context, sec *schema.GeneratedSection, issues []schema.CoherenceIssue) bool {
	var sb strings.Builder
	for i, issue := range issues {
		fmt.Fprintf(&sb, "%d. %s", i+1, issue.Description)
		if issue.SuggestedRevision != "" {
			fmt.Fprintf(&sb, " Suggested revision: %s", issue.SuggestedRevision)
		}
		sb.WriteString("\n")
	}

	body, err := prompt.Render(o.prompts.Revision, prompt.RevisionData{
		Title:   sec.Title,
		Content: sec.Content,
		Issues:  sb.String(),
		Shape:   prompt.ShapeInstruction(sec.Element),
	})
	if err != nil {
		o.logger.WithError(err).WithField("section", sec.Title).Warn("revision prompt failed; keeping content")
		return false
	}

	raw, err := o.invoker.Generate(ctx, "revise_section:"+sec.SectionID, o.prompts.System, body)
	if err != nil {
		o.logger.WithError(err).WithField("section", sec.Title).Warn("revision call failed; keeping content")
		return false
	}

	content, valid := o.gen.RepairContent(ctx, raw, sec.Element)
	if !valid {
		o.logger.WithField("section", sec.Title).Warn("revision output never validated; keeping content")
		return false
	}
	sec.Content = content
	return true
}

// groupIssues indexes issues by each affected section title. One issue
// naming two sections appears under both.
func groupIssues(issues []schema.CoherenceIssue) map[string][]schema.CoherenceIssue {
	byTitle := make(map[string][]schema.CoherenceIssue)
	for _, issue := range issues {
		for _, title := range issue.AffectedSections {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			byTitle[title] = append(byTitle[title], issue)
		}
	}
	return byTitle
}

// contentSections filters out formatting-only elements, which carry no
// reviewable prose.
func contentSections(sections []schema.GeneratedSection) []schema.GeneratedSection {
	var out []schema.GeneratedSection
	for _, s := range sections {
		if s.Element == schema.ElementTitle || s.Element == schema.ElementHorizontalRule {
			continue
		}
		out = append(out, s)
	}
	return out
}
