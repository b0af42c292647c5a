package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

// Embedder turns text into fixed-width vectors through a langchaingo client.
// Calls are rate limited and bounded by a per-call timeout.
type Embedder struct {
	impl    *embeddings.EmbedderImpl
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// New builds an embedder for the configured provider.
func New(cfg *config.LLMConfig) (*Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedder config")

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOllama:
		client, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		client, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
			openai.WithEmbeddingModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: initializing %s client: %w", models.ErrEmbeddingFailure, cfg.Provider, err)
	}

	return NewWithClient(client, cfg.Model, cfg.RequestsPerSecond, cfg.Timeout)
}

// NewWithClient wraps an arbitrary embedder client. rps <= 0 disables rate
// limiting and timeout <= 0 disables the per-call deadline.
func NewWithClient(client embeddings.EmbedderClient, model string, rps float64, timeout time.Duration) (*Embedder, error) {
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %w", models.ErrEmbeddingFailure, err)
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Embedder{
		impl:    impl,
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}, nil
}

// Model names the embedding model stamped on every stored record.
func (e *Embedder) Model() string {
	return e.model
}

// Embed returns one vector per input text, in order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailure, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmbeddingFailure, len(vectors), len(texts))
	}

	log.Debug().Int("count", len(texts)).Str("model", e.model).Msg("Generated embeddings")
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
