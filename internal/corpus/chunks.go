package corpus

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"activity-rag/internal/chunker"
	"activity-rag/internal/config"
	"activity-rag/internal/identity"
	"activity-rag/internal/models"
)

// Options controls how document bodies are cut into chunks.
type Options struct {
	Strategy      string
	ChunkSize     int
	MaxTokens     int
	OverlapTokens int
	Counter       chunker.TokenCounter
	LinkBase      string
}

// OptionsFromConfig resolves chunking options, including the token counter.
func OptionsFromConfig(cfg *config.RAGConfig) (Options, error) {
	counter, err := chunker.CounterFor(cfg.Tokenizer)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	return Options{
		Strategy:      cfg.ChunkStrategy,
		ChunkSize:     cfg.ChunkSize,
		MaxTokens:     cfg.MaxTokens,
		OverlapTokens: cfg.OverlapTokens,
		Counter:       counter,
		LinkBase:      cfg.LinkBase,
	}, nil
}

type section struct {
	label models.Section
	paras []string
}

// splitSections groups paragraphs under the labelled paragraph that precedes
// them. Paragraphs before the first label form a General preamble.
func splitSections(body string) []section {
	var out []section
	for _, p := range chunker.Paragraphs(body) {
		label := chunker.Classify(p)
		if label != models.SectionGeneral || len(out) == 0 {
			out = append(out, section{label: label})
		}
		last := &out[len(out)-1]
		last.paras = append(last.paras, p)
	}
	return out
}

func (o Options) split(text string) ([]string, error) {
	switch o.Strategy {
	case "", config.StrategyParagraph:
		size := o.ChunkSize
		if size == 0 {
			size = chunker.DefaultChunkSize
		}
		return chunker.ChunkByBudget(text, size)
	case config.StrategyToken:
		maxTokens := o.MaxTokens
		if maxTokens == 0 {
			maxTokens = chunker.DefaultMaxTokens
		}
		return chunker.ChunkByTokenBudget(text, maxTokens, o.OverlapTokens, o.Counter)
	default:
		return nil, fmt.Errorf("%w: unknown chunk strategy %q", models.ErrInvalidInput, o.Strategy)
	}
}

// DocumentChunks cuts one document into identified, tagged and linked chunks.
func DocumentChunks(doc models.Document, opts Options) ([]models.Chunk, error) {
	if strings.TrimSpace(doc.Code) == "" {
		return nil, fmt.Errorf("%w: document code must not be empty", models.ErrInvalidInput)
	}

	var chunks []models.Chunk
	for _, sec := range splitSections(doc.Body) {
		pieces, err := opts.split(strings.Join(sec.paras, "\n\n"))
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", doc.Code, err)
		}
		for _, text := range pieces {
			label := chunker.Classify(text)
			chunks = append(chunks, models.Chunk{
				ID:         identity.StableID(doc.Code, string(label), text),
				SourceCode: doc.Code,
				Text:       text,
				Section:    label,
				Tags:       models.BuildTags(doc.Code, string(label)),
				Link:       models.BuildLink(opts.LinkBase, doc.Code, label),
			})
		}
	}
	return chunks, nil
}

// BuildChunks chunks every document in parallel and returns the chunks in
// corpus order. Document codes must be unique.
func BuildChunks(ctx context.Context, docs []models.Document, opts Options) ([]models.Chunk, error) {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Code]; ok {
			return nil, fmt.Errorf("%w: duplicate document code %q", models.ErrInvalidInput, d.Code)
		}
		seen[d.Code] = struct{}{}
	}

	perDoc := make([][]models.Chunk, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, d := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks, err := DocumentChunks(d, opts)
			if err != nil {
				return err
			}
			perDoc[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.Chunk
	for _, chunks := range perDoc {
		out = append(out, chunks...)
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(out)).Msg("Built chunks")
	return out, nil
}
