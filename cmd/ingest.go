package main

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"activity-rag/internal/corpus"
	"activity-rag/internal/helper"
	"activity-rag/internal/index"
	"activity-rag/internal/models"
	"activity-rag/internal/runlog"
)

const sampleSource = "sample"

// ingestSummary is the ingest report plus the collection size afterwards.
type ingestSummary struct {
	index.IngestReport
	Total int `json:"total"`
}

var (
	ingestFiles  []string
	ingestReset  bool
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk the corpus, embed it and upsert it into the vector store",
	Long: `Loads the corpus from --file paths (files or directories), from corpus.paths in the
config, or falls back to the built-in activity catalogue. The command returns only after
every batch has been upserted.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "file", "f", nil, "corpus file or directory (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", true, "drop and recreate the collection before ingesting")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "print the chunks without embedding or storing them")
	rootCmd.AddCommand(ingestCmd)
}

func loadCorpus() ([]models.Document, string, error) {
	paths := ingestFiles
	if len(paths) == 0 {
		paths = cfg.Corpus.Paths
	}
	if len(paths) == 0 {
		return corpus.Sample(), sampleSource, nil
	}
	docs, err := corpus.LoadPaths(paths)
	return docs, strings.Join(paths, ","), err
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	started := time.Now()

	docs, source, err := loadCorpus()
	if err != nil {
		return err
	}
	opts, err := corpus.OptionsFromConfig(&cfg.RAG)
	if err != nil {
		return err
	}
	chunks, err := corpus.BuildChunks(ctx, docs, opts)
	if err != nil {
		return err
	}
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Str("source", source).Msg("Chunked corpus")

	if ingestDryRun {
		helper.PrettyPrint(cmd.OutOrStdout(), chunks)
		return nil
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, ingestErr := ingest(ctx, a, chunks)
	recordRun(ctx, runlog.Run{
		Collection: cfg.VectorStore.Collection,
		Source:     source,
		Reset:      ingestReset,
		Upserted:   report.Upserted,
		Skipped:    report.Skipped,
		Duplicates: report.Duplicates,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Error:      errString(ingestErr),
	})
	if ingestErr != nil {
		return ingestErr
	}

	total, err := a.store.Count(ctx, cfg.VectorStore.Collection)
	if err != nil {
		return err
	}
	helper.PrettyPrint(cmd.OutOrStdout(), ingestSummary{IngestReport: report, Total: total})
	return nil
}

func ingest(ctx context.Context, a *app, chunks []models.Chunk) (index.IngestReport, error) {
	m, err := a.manager()
	if err != nil {
		return index.IngestReport{}, err
	}
	if ingestReset {
		err = m.ResetCollection(ctx)
	} else {
		err = m.EnsureCollection(ctx)
	}
	if err != nil {
		return index.IngestReport{}, err
	}

	report, err := m.Ingest(ctx, chunks)
	if err != nil {
		return report, err
	}
	return report, a.persist(ctx)
}

// recordRun writes the ledger entry. A ledger failure never fails the ingestion.
func recordRun(ctx context.Context, run runlog.Run) {
	if cfg.RunLog.Path == "" {
		return
	}
	ledger, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Error opening run ledger")
		return
	}
	defer ledger.Close()

	if _, err := ledger.Record(ctx, run); err != nil {
		log.Warn().Err(err).Msg("Error recording run")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
