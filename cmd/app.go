package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"activity-rag/internal/chromemdb"
	"activity-rag/internal/config"
	"activity-rag/internal/db"
	"activity-rag/internal/embedding"
	"activity-rag/internal/helper"
	"activity-rag/internal/index"
	"activity-rag/internal/models"
	"activity-rag/internal/qdrantdb"
	"activity-rag/internal/rag"
)

// vectorStore is what every backend offers to both the index manager and
// the retriever.
type vectorStore interface {
	index.Store
	rag.Searcher
	Count(ctx context.Context, collection string) (int, error)
}

// newEmbedder is swapped in tests for a deterministic client.
var newEmbedder = func(cfg *config.LLMConfig) (*embedding.Embedder, error) {
	return embedding.New(cfg)
}

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg      *config.Config
	store    vectorStore
	embedder *embedding.Embedder
	chromem  *chromemdb.Store
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	e, err := newEmbedder(&cfg.EmbedLLM)
	if err != nil {
		a.close()
		return nil, err
	}
	a.embedder = e
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	vs := a.cfg.VectorStore
	switch vs.Type {
	case config.StoreChromem:
		if !vs.Chromem.InMemory {
			if err := helper.CreateFolder(vs.Chromem.Path); err != nil {
				return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
			}
		}
		s, err := chromemdb.New(&vs.Chromem)
		if err != nil {
			return err
		}
		if _, err := s.Import(ctx, vs.Collection); err != nil {
			return err
		}
		a.store, a.chromem = s, s
	case config.StoreQdrant:
		s, err := qdrantdb.New(&vs.Qdrant)
		if err != nil {
			return err
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	case config.StorePGVector:
		s := db.New(&a.cfg.Database)
		a.closers = append(a.closers, s.Close)
		if err := s.Ping(ctx); err != nil {
			a.close()
			return err
		}
		a.store = s
	default:
		return fmt.Errorf("%w: unknown vector store %q", models.ErrConfiguration, vs.Type)
	}
	log.Debug().Str("store", vs.Type).Str("collection", vs.Collection).Msg("Opened vector store")
	return nil
}

func (a *app) manager() (*index.Manager, error) {
	return index.NewManager(a.store, a.embedder, index.Options{
		Collection: a.cfg.VectorStore.Collection,
		Dimension:  a.cfg.VectorStore.Dimension,
		BatchSize:  a.cfg.RAG.BatchSize,
		Timeout:    a.cfg.RAG.Timeout,
	})
}

func (a *app) retriever() (*rag.Retriever, error) {
	return rag.NewRetriever(a.store, a.embedder, rag.Options{
		Collection:   a.cfg.VectorStore.Collection,
		ContextChars: a.cfg.RAG.ContextChars,
		Timeout:      a.cfg.RAG.Timeout,
	})
}

// persist writes the chromem snapshot when one is configured.
func (a *app) persist(ctx context.Context) error {
	if a.chromem == nil {
		return nil
	}
	return a.chromem.Export(ctx, a.cfg.VectorStore.Collection)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}
