// Package report drives whole-report generation: the sequential section
// loop with gap enhancement, metrics accumulation, coherence review, and
// targeted coherence fixing.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/draftforge/draftforge/internal/concurrency"
	"github.com/draftforge/draftforge/internal/enhance"
	"github.com/draftforge/draftforge/internal/llm"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/section"
)

// lowConfidenceThreshold marks sections whose confidence drags the report
// into manual review territory.
const lowConfidenceThreshold = 3.0

// pairReviewThreshold is the section count above which coherence review
// switches from one whole-report call to pairwise parallel review.
const pairReviewThreshold = 4

// Progress reports coarse generation milestones to the caller. percent is
// 0..100. Implementations are wrapped so they can never block generation by
// panicking; they should still return promptly.
type Progress func(percent int, message string)

// Store persists finished reports. The orchestrator saves both successful
// and draft-on-error reports when a store is configured.
type Store interface {
	Save(ctx context.Context, r *schema.Report) error
}

// Config tunes orchestration behavior.
type Config struct {
	// ReviewLimit caps concurrent coherence-review and coherence-fix calls.
	ReviewLimit int
	// PublishOnSuccess selects published over pending_review as the
	// terminal status of a clean run.
	PublishOnSuccess bool
}

// Orchestrator owns one report for the duration of a generation run. No
// other writer touches the report until Generate returns.
type Orchestrator struct {
	gen      *section.Generator
	enhancer *enhance.Enhancer
	invoker  *llm.Invoker
	prompts  *prompt.Set
	store    Store
	logger   *logrus.Logger
	cfg      Config
	sem      *concurrency.Semaphore
}

// New creates an Orchestrator. store may be nil; enhancer may be nil to
// disable gap enhancement entirely.
func New(
	gen *section.Generator,
	enhancer *enhance.Enhancer,
	invoker *llm.Invoker,
	prompts *prompt.Set,
	store Store,
	cfg Config,
	logger *logrus.Logger,
) *Orchestrator {
	if cfg.ReviewLimit <= 0 {
		cfg.ReviewLimit = 2
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		gen:      gen,
		enhancer: enhancer,
		invoker:  invoker,
		prompts:  prompts,
		store:    store,
		logger:   logger,
		cfg:      cfg,
		sem:      concurrency.New(cfg.ReviewLimit),
	}
}

// Semaphore exposes the review/fix limiter for instrumentation.
func (o *Orchestrator) Semaphore() *concurrency.Semaphore { return o.sem }

// Generate runs the full pipeline and returns the report. A failure inside
// the mandatory section loop does not surface as an error: the report comes
// back with status draft, the error string attached, and every section
// completed so far preserved. The returned error is reserved for
// configuration problems that prevent the run from starting.
func (o *Orchestrator) Generate(ctx context.Context, scope schema.Scope, title string, progress Progress) (*schema.Report, error) {
	if len(o.prompts.Sections) == 0 {
		return nil, fmt.Errorf("report: study type %q has no sections configured", o.prompts.Study)
	}
	notify := safeProgress(progress, o.logger)

	report := &schema.Report{
		ID:     uuid.NewString(),
		Title:  title,
		CaseID: scope.CaseID,
		Study:  o.prompts.Study,
		Status: schema.StatusDraft,
		Metadata: schema.ReportMetadata{
			DocumentCount: len(scope.DocIDs),
			Metrics:       schema.ReportMetrics{StartedAt: time.Now().UTC()},
		},
	}

	if err := o.sectionLoop(ctx, report, scope, notify); err != nil {
		// Loop failures terminate generation but preserve completed work.
		report.Status = schema.StatusDraft
		report.Error = err.Error()
		o.finalize(ctx, report)
		o.logger.WithError(err).Warn("report generation halted; returning draft")
		return report, nil
	}

	notify(75, "reviewing report coherence")
	issues := o.review(ctx, report.Sections)

	notify(85, "applying coherence fixes")
	report.Metadata.CoherenceScores = o.fix(ctx, report, issues)

	if o.cfg.PublishOnSuccess {
		report.Status = schema.StatusPublished
	} else {
		report.Status = schema.StatusPendingReview
	}

	notify(100, "report complete")
	o.finalize(ctx, report)
	return report, nil
}

// sectionLoop generates each configured section in order, carrying all
// prior sections as prompt context. Order is a correctness requirement:
// section N's prompt includes sections 1..N-1.
func (o *Orchestrator) sectionLoop(ctx context.Context, report *schema.Report, scope schema.Scope, notify Progress) error {
	total := len(o.prompts.Sections)
	for i, cfg := range o.prompts.Sections {
		percent := 5 + (65*i)/total
		notify(percent, fmt.Sprintf("generating section %d/%d: %s", i+1, total, cfg.Title))

		sec, err := o.gen.Generate(ctx, cfg, scope, report.Sections, nil)
		if err != nil {
			return fmt.Errorf("section %q: %w", cfg.Title, err)
		}

		if o.enhancer != nil && cfg.Content == schema.ContentGenerated {
			if err := o.enhancer.Enhance(ctx, &sec, cfg, scope); err != nil {
				// Enhancement is best-effort; the validated base section stands.
				o.logger.WithError(err).WithField("section", cfg.Title).Warn("enhancement failed; keeping base section")
			}
			if sec.Enhanced {
				report.Metadata.EnhancementHistory = append(report.Metadata.EnhancementHistory, cfg.Title)
			}
		}

		report.Sections = append(report.Sections, sec)
		o.accumulate(&report.Metadata.Metrics, sec, cfg)
		notify(5+(65*(i+1))/total, fmt.Sprintf("completed section %d/%d", i+1, total))
	}
	return nil
}

// accumulate folds one section's outcome into the report metrics.
// Formatting elements carry no information and are excluded.
func (o *Orchestrator) accumulate(m *schema.ReportMetrics, sec schema.GeneratedSection, cfg schema.SectionConfig) {
	if cfg.Element == schema.ElementTitle || cfg.Element == schema.ElementHorizontalRule {
		return
	}
	m.QuestionCount++
	if sec.Content != "" {
		m.AnsweredCount++
	}
	if sec.Explanation.Confidence < lowConfidenceThreshold {
		m.LowConfidenceCount++
	}
	m.EvidenceCount += len(sec.Explanation.Evidence)

	// OverallConfidence holds the running sum until finalize averages it.
	m.OverallConfidence += sec.Explanation.Confidence
}

// finalize stamps the metrics and persists the report when a store is
// configured. Persistence failure is logged, never raised: the caller
// still receives the in-memory report.
func (o *Orchestrator) finalize(ctx context.Context, report *schema.Report) {
	m := &report.Metadata.Metrics
	m.CompletedAt = time.Now().UTC()
	m.ProcessingSeconds = m.CompletedAt.Sub(m.StartedAt).Seconds()
	if m.QuestionCount > 0 {
		m.OverallConfidence /= float64(m.QuestionCount)
	}

	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, report); err != nil {
		o.logger.WithError(err).Error("failed to persist report")
	}
}

// safeProgress wraps a progress callback so a panicking or nil callback
// can never take down generation.
func safeProgress(p Progress, logger *logrus.Logger) Progress {
	return func(percent int, message string) {
		if p == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Warnf("progress callback panicked: %v", r)
			}
		}()
		p(percent, message)
	}
}
