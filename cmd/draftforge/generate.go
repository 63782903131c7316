package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/internal/config"
	"github.com/draftforge/draftforge/internal/embed"
	"github.com/draftforge/draftforge/internal/enhance"
	"github.com/draftforge/draftforge/internal/llm"
	"github.com/draftforge/draftforge/internal/prompt"
	"github.com/draftforge/draftforge/internal/render"
	"github.com/draftforge/draftforge/internal/rerank"
	"github.com/draftforge/draftforge/internal/report"
	"github.com/draftforge/draftforge/internal/retrieval"
	"github.com/draftforge/draftforge/internal/schema"
	"github.com/draftforge/draftforge/internal/section"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/vecstore"
)

func newGenerateCmd(logger *logrus.Logger) *cobra.Command {
	var (
		caseID   string
		study    string
		title    string
		docIDs   []string
		outPath  string
		jsonOut  bool
		noEnrich bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a complete report for a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			studyType, ok := schema.ParseStudyType(study)
			if !ok {
				return fmt.Errorf("unknown study type %q (want legal_statement or case_study)", study)
			}
			prompts, err := prompt.Get(studyType)
			if err != nil {
				return err
			}

			cfg := config.FromEnv()
			orch, db, err := buildPipeline(cfg, prompts, logger, noEnrich)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			scope := schema.Scope{CaseID: caseID, DocIDs: docIDs}
			progress := func(percent int, message string) {
				logger.WithField("percent", percent).Info(message)
			}

			rep, err := orch.Generate(cmd.Context(), scope, title, progress)
			if err != nil {
				return err
			}

			var out []byte
			if jsonOut {
				out, err = render.RenderJSON(rep)
				if err != nil {
					return err
				}
			} else {
				out = []byte(render.RenderMarkdown(rep))
			}
			if outPath != "" {
				return os.WriteFile(outPath, out, 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case", "", "case ID scoping retrieval (required)")
	cmd.Flags().StringVar(&study, "study", string(schema.StudyLegalStatement), "study type: legal_statement or case_study")
	cmd.Flags().StringVar(&title, "title", "Generated Report", "report title")
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "explicit document ID allow-list (repeatable)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the rendered report to a file instead of stdout")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the raw report artifact as JSON")
	cmd.Flags().BoolVar(&noEnrich, "no-enhance", false, "disable gap-driven enhancement")
	_ = cmd.MarkFlagRequired("case")

	return cmd
}

// buildPipeline wires config into the full component stack. Every
// dependency is constructed here and injected; no package-level clients.
func buildPipeline(cfg config.Config, prompts *prompt.Set, logger *logrus.Logger, noEnhance bool) (*report.Orchestrator, *store.Store, error) {
	invoker, err := llm.NewInvoker(llm.Options{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embed.NewOpenAI(cfg.EmbedModel)
	if err != nil {
		return nil, nil, err
	}

	searcher := vecstore.NewClient(vecstore.Config{
		BaseURL:    cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.Collection,
	}, logger)

	var scorer rerank.Scorer
	if cfg.RerankEndpoint != "" {
		scorer = rerank.NewClient(rerank.Config{
			Endpoint: cfg.RerankEndpoint,
			Model:    cfg.RerankModel,
			APIKey:   cfg.RerankAPIKey,
		}, logger)
	}

	retriever := retrieval.New(embedder, searcher, scorer, logger)
	generator := section.New(retriever, invoker, prompts, logger)

	var enhancer *enhance.Enhancer
	if !noEnhance {
		enhancer = enhance.New(retriever, invoker, generator, prompts, logger)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	orch := report.New(generator, enhancer, invoker, prompts, db, report.Config{
		ReviewLimit:      cfg.ReviewLimit,
		PublishOnSuccess: cfg.PublishOnSuccess,
	}, logger)

	return orch, db, nil
}
