// Package index owns the vector collection lifecycle and ingestion.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"activity-rag/internal/identity"
	"activity-rag/internal/models"
)

// Store is the vector store surface the manager drives.
type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dimension int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, records []models.Record) error
}

// Embedder produces one vector per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type Options struct {
	Collection string
	Dimension  int
	// BatchSize caps the texts sent per embedding request. 0 sends everything at once.
	BatchSize int
	// Timeout bounds every store call. 0 disables it.
	Timeout time.Duration
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Upserted   int `json:"upserted"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

type Manager struct {
	store    Store
	embedder Embedder
	opts     Options

	// serializes collection resets against ingestion
	mu sync.Mutex
}

func NewManager(store Store, embedder Embedder, opts Options) (*Manager, error) {
	if store == nil || embedder == nil {
		return nil, fmt.Errorf("%w: index manager needs a store and an embedder", models.ErrConfiguration)
	}
	if strings.TrimSpace(opts.Collection) == "" {
		return nil, fmt.Errorf("%w: collection name must not be empty", models.ErrConfiguration)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", models.ErrConfiguration, opts.Dimension)
	}
	if opts.BatchSize < 0 {
		opts.BatchSize = 0
	}
	return &Manager{store: store, embedder: embedder, opts: opts}, nil
}

func (m *Manager) Collection() string {
	return m.opts.Collection
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.Timeout > 0 {
		return context.WithTimeout(ctx, m.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// ResetCollection drops the collection when present and recreates it empty.
func (m *Manager) ResetCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		cctx, cancel := m.withTimeout(ctx)
		err := m.store.DeleteCollection(cctx, m.opts.Collection)
		cancel()
		if err != nil {
			return fmt.Errorf("deleting collection %s: %w", m.opts.Collection, err)
		}
		log.Info().Str("collection", m.opts.Collection).Msg("Deleted collection")
	}
	return m.create(ctx)
}

// EnsureCollection creates the collection only when it does not exist yet.
func (m *Manager) EnsureCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.exists(ctx)
	if err != nil || exists {
		return err
	}
	return m.create(ctx)
}

func (m *Manager) exists(ctx context.Context) (bool, error) {
	cctx, cancel := m.withTimeout(ctx)
	defer cancel()
	exists, err := m.store.CollectionExists(cctx, m.opts.Collection)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", m.opts.Collection, err)
	}
	return exists, nil
}

func (m *Manager) create(ctx context.Context) error {
	cctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.store.CreateCollection(cctx, m.opts.Collection, m.opts.Dimension); err != nil {
		return fmt.Errorf("creating collection %s: %w", m.opts.Collection, err)
	}
	log.Info().Str("collection", m.opts.Collection).Int("dimension", m.opts.Dimension).Msg("Created collection")
	return nil
}

// Ingest embeds and upserts chunks keyed by id. Chunks with blank text are
// skipped, chunks without an id get their content-addressed id, and repeated
// ids within one call are upserted once. Batches are processed in order; when
// a batch fails, earlier batches stay in the store and the report counts them.
func (m *Manager) Ingest(ctx context.Context, chunks []models.Chunk) (IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report IngestReport
	kept := make([]models.Chunk, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			report.Skipped++
			log.Warn().Err(models.ErrMalformedChunk).Int("position", i).Str("source", c.SourceCode).Msg("Skipping chunk with empty text")
			continue
		}
		if c.Section == "" {
			c.Section = models.SectionGeneral
		}
		if c.ID == "" {
			c.ID = identity.StableID(c.SourceCode, string(c.Section), c.Text)
		}
		if _, ok := seen[c.ID]; ok {
			report.Duplicates++
			continue
		}
		seen[c.ID] = struct{}{}
		kept = append(kept, c)
	}

	batchSize := m.opts.BatchSize
	if batchSize == 0 {
		batchSize = max(1, len(kept))
	}

	for start := 0; start < len(kept); start += batchSize {
		batch := kept[start:min(start+batchSize, len(kept))]
		if err := m.ingestBatch(ctx, batch); err != nil {
			return report, fmt.Errorf("batch starting at %d: %w", start, err)
		}
		report.Upserted += len(batch)
	}

	log.Info().
		Str("collection", m.opts.Collection).
		Int("upserted", report.Upserted).
		Int("skipped", report.Skipped).
		Int("duplicates", report.Duplicates).
		Msg("Ingestion finished")
	return report, nil
}

func (m *Manager) ingestBatch(ctx context.Context, batch []models.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrEmbeddingFailure, len(vectors), len(batch))
	}

	model := m.embedder.Model()
	records := make([]models.Record, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != m.opts.Dimension {
			return fmt.Errorf("%w: chunk %s has dimension %d, collection expects %d",
				models.ErrEmbeddingFailure, c.ID, len(vectors[i]), m.opts.Dimension)
		}
		c.Embedding = vectors[i]
		records[i] = c.ToRecord(model)
	}

	cctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.store.Upsert(cctx, m.opts.Collection, records); err != nil {
		return fmt.Errorf("upserting %d records: %w", len(records), err)
	}
	log.Debug().Int("records", len(records)).Str("collection", m.opts.Collection).Msg("Upserted batch")
	return nil
}
