package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

const dimensionKey = "dimension"

var errNoEmbeddingFunc = errors.New("chromemdb: embeddings must be computed before upsert")

// Store keeps chunk records in a chromem-go database, either persisted to a
// directory or held in memory with an optional encrypted snapshot file.
type Store struct {
	db            *chromem.DB
	compress      bool
	snapshot      string
	encryptionKey string
}

// New opens the database described by cfg.
func New(cfg *config.ChromemConfig) (*Store, error) {
	s := &Store{
		compress:      cfg.Compress,
		snapshot:      cfg.Snapshot,
		encryptionKey: cfg.EncryptionKey,
	}
	if cfg.InMemory {
		s.db = chromem.NewDB()
		return s, nil
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database at %s: %w", models.ErrStoreUnavailable, cfg.Path, err)
	}
	s.db = db
	return s, nil
}

// NewInMemory returns an empty, non-persistent store.
func NewInMemory() *Store {
	return &Store{db: chromem.NewDB()}
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	return s.db.GetCollection(name, noEmbedding) != nil, nil
}

func (s *Store) CreateCollection(_ context.Context, name string, dimension int) error {
	meta := map[string]string{dimensionKey: strconv.Itoa(dimension)}
	if _, err := s.db.CreateCollection(name, meta, noEmbedding); err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: failed to drop collection %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %s does not exist", models.ErrStoreUnavailable, name)
	}
	return c, nil
}

// Upsert adds records, replacing any stored record with the same id.
func (s *Store) Upsert(ctx context.Context, collection string, records []models.Record) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   r.Metadata[models.MetaText],
			Metadata:  r.Metadata,
			Embedding: r.Vector,
		})
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Search returns up to topK nearest records by cosine similarity.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK int) ([]models.Hit, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size
	n := min(topK, c.Count())
	if n <= 0 {
		return []models.Hit{}, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %w", models.ErrStoreUnavailable, err)
	}

	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.Hit{
			ID:       r.ID,
			Score:    float64(r.Similarity),
			Metadata: r.Metadata,
		})
	}
	return hits, nil
}

// Count reports how many records a collection holds.
func (s *Store) Count(_ context.Context, collection string) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Export writes the collection to the snapshot file, encrypted when a key is
// configured. It is a no-op without a snapshot path.
func (s *Store) Export(_ context.Context, collection string) error {
	if s.snapshot == "" {
		return nil
	}
	if _, err := s.collection(collection); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0o755); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	log.Debug().Str("collection", collection).Str("file", s.snapshot).Bool("compress", s.compress).Msg("Exporting collection")
	if err := s.db.ExportToFile(s.snapshot, s.compress, s.encryptionKey, collection); err != nil {
		return fmt.Errorf("%w: failed to export collection %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	return nil
}

// Import loads the collection from the snapshot file when one exists. It
// reports whether anything was imported.
func (s *Store) Import(_ context.Context, collection string) (bool, error) {
	if s.snapshot == "" {
		return false, nil
	}
	if _, err := os.Stat(s.snapshot); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err := s.db.ImportFromFile(s.snapshot, s.encryptionKey, collection); err != nil {
		return false, fmt.Errorf("%w: failed to import collection %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	log.Debug().Str("collection", collection).Str("file", s.snapshot).Msg("Imported collection")
	return true, nil
}
