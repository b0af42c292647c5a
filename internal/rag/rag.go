// Package rag retrieves ranked, citable context for a question.
package rag

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"activity-rag/internal/helper"
	"activity-rag/internal/models"
)

// Searcher is the read side of a vector store.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]models.Hit, error)
}

// QueryEmbedder must be the same model the collection was ingested with.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Model() string
}

type Options struct {
	Collection string
	// ContextChars truncates each chunk in the grounding context. 0 keeps full text.
	ContextChars int
	// Timeout bounds the embedding call and the store search separately.
	Timeout time.Duration
	// System overrides models.SystemConstraint.
	System string
}

type Retriever struct {
	searcher Searcher
	embedder QueryEmbedder
	opts     Options
}

func NewRetriever(searcher Searcher, embedder QueryEmbedder, opts Options) (*Retriever, error) {
	if searcher == nil || embedder == nil {
		return nil, fmt.Errorf("%w: retriever needs a searcher and an embedder", models.ErrConfiguration)
	}
	if strings.TrimSpace(opts.Collection) == "" {
		return nil, fmt.Errorf("%w: collection name must not be empty", models.ErrConfiguration)
	}
	if opts.System == "" {
		opts.System = models.SystemConstraint
	}
	return &Retriever{searcher: searcher, embedder: embedder, opts: opts}, nil
}

func (r *Retriever) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout > 0 {
		return context.WithTimeout(ctx, r.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Search returns at most topK chunks ordered by descending score, ties by id.
// A positive threshold drops weaker matches. A query that matches nothing
// yields an empty slice and no error; a broken pipeline yields nil and an
// error wrapping models.ErrContextUnavailable.
func (r *Retriever) Search(ctx context.Context, query string, topK int, threshold float64) ([]models.RetrievalResult, error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: topK must not be negative, got %d", models.ErrInvalidInput, topK)
	}
	if topK == 0 {
		return []models.RetrievalResult{}, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrInvalidInput)
	}

	ectx, cancel := r.withTimeout(ctx)
	vector, err := r.embedder.EmbedQuery(ectx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", models.ErrContextUnavailable, err)
	}

	sctx, cancel := r.withTimeout(ctx)
	hits, err := r.searcher.Search(sctx, r.opts.Collection, vector, topK)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: searching %s: %w", models.ErrContextUnavailable, r.opts.Collection, err)
	}

	model := r.embedder.Model()
	results := make([]models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if threshold > 0 && h.Score < threshold {
			continue
		}
		if stamped := h.Metadata[models.MetaModel]; stamped != "" && stamped != model {
			log.Warn().Str("id", h.ID).Str("stored_model", stamped).Str("query_model", model).
				Msg("Hit was embedded with a different model")
		}
		results = append(results, models.RetrievalResult{Chunk: models.ChunkFromHit(h), Score: h.Score})
	}

	slices.SortStableFunc(results, func(a, b models.RetrievalResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Chunk.ID, b.Chunk.ID)
	})
	if len(results) > topK {
		results = results[:topK]
	}

	log.Debug().Str("query", query).Int("hits", len(hits)).Int("results", len(results)).Msg("Retrieved context")
	return results, nil
}

// BuildContext renders results as numbered citations:
//
//	[0] text
//	Source: link
//	---
func BuildContext(results []models.RetrievalResult, maxChars int) string {
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "[%d] %s\n", i, helper.Truncate(res.Chunk.Text, maxChars))
		fmt.Fprintf(&b, "Source: %s\n", res.Chunk.Link)
		b.WriteString(models.ContextSeparator)
		b.WriteByte('\n')
	}
	return b.String()
}

// Grounding is everything a generation step needs to answer from context only.
type Grounding struct {
	System  string                   `json:"system"`
	Context string                   `json:"context"`
	Query   string                   `json:"query"`
	Results []models.RetrievalResult `json:"results"`
}

// Prompt renders the context and question as the user message. System
// travels separately.
func (g Grounding) Prompt() string {
	return fmt.Sprintf("Context:\n%s\nQuestion: %s", g.Context, g.Query)
}

// Ground retrieves context for query and packages it with the system constraint.
func (r *Retriever) Ground(ctx context.Context, query string, topK int, threshold float64) (Grounding, error) {
	results, err := r.Search(ctx, query, topK, threshold)
	if err != nil {
		return Grounding{}, err
	}

	text := BuildContext(results, r.opts.ContextChars)
	if len(results) == 0 {
		text = models.NoContextNotice + "\n"
	}
	return Grounding{
		System:  r.opts.System,
		Context: text,
		Query:   query,
		Results: results,
	}, nil
}
