package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID        string            `bun:"id,pk"`
	Text      string            `bun:"text,notnull"`
	Metadata  map[string]string `bun:"metadata,type:jsonb"`
	Embedding pgvector.Vector   `bun:"embedding,type:vector"`
	Score     float64           `bun:"score,scanonly"`
}

// Store keeps one pgvector table per collection.
type Store struct {
	db *bun.DB
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn, password string) *sql.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...))
}

// New opens a lazily connected store; call Ping to check the server.
func New(cfg *config.DatabaseConfig) *Store {
	return &Store{db: NewDB(ConnectDB(cfg.DSN, cfg.Password), cfg.Debug)}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.NewRaw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?)",
		name,
	).Scan(ctx, &exists)
	if err != nil {
		return false, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	return exists, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, dimension int) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: enabling pgvector: %w", models.ErrStoreUnavailable, err)
	}
	_, err := s.db.NewRaw(
		"CREATE TABLE IF NOT EXISTS ? (id text PRIMARY KEY, text text NOT NULL, metadata jsonb NOT NULL DEFAULT '{}', embedding vector(?) NOT NULL)",
		bun.Ident(name), dimension,
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create table %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.db.NewDropTable().TableExpr("?", bun.Ident(name)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: drop table %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *Store) upsertQuery(collection string, rows *[]chunkRow) *bun.InsertQuery {
	return s.db.NewInsert().
		Model(rows).
		ModelTableExpr("?", bun.Ident(collection)).
		On("CONFLICT (id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding")
}

func (s *Store) Upsert(ctx context.Context, collection string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]chunkRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, chunkRow{
			ID:        r.ID,
			Text:      r.Metadata[models.MetaText],
			Metadata:  r.Metadata,
			Embedding: pgvector.NewVector(r.Vector),
		})
	}
	if _, err := s.upsertQuery(collection, &rows).Exec(ctx); err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	return nil
}

func (s *Store) countQuery(collection string) *bun.SelectQuery {
	return s.db.NewSelect().
		ColumnExpr("count(*)").
		TableExpr("?", bun.Ident(collection))
}

// Count reports how many rows a collection table holds.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.countQuery(collection).Scan(ctx, &n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	return n, nil
}

func (s *Store) searchQuery(collection string, vector []float32, topK int, rows *[]chunkRow) *bun.SelectQuery {
	v := pgvector.NewVector(vector)
	return s.db.NewSelect().
		Model(rows).
		ModelTableExpr("? AS c", bun.Ident(collection)).
		Column("id", "text", "metadata").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", v).
		OrderExpr("embedding <=> ?::vector ASC, id ASC", v).
		Limit(topK)
}

// Search ranks rows by cosine similarity, reported as 1 - cosine distance.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK int) ([]models.Hit, error) {
	if topK <= 0 {
		return []models.Hit{}, nil
	}
	var rows []chunkRow
	if err := s.searchQuery(collection, vector, topK, &rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", models.ErrStoreUnavailable, collection, err)
	}

	hits := make([]models.Hit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, models.Hit{ID: r.ID, Score: r.Score, Metadata: r.Metadata})
	}
	return hits, nil
}
