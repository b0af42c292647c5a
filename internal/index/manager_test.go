package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-rag/internal/chromemdb"
	"activity-rag/internal/corpus"
	"activity-rag/internal/embedding"
	"activity-rag/internal/embedding/embeddingtest"
	"activity-rag/internal/models"
)

const dim = 32

func newManager(t *testing.T, client *embeddingtest.Client, batch int) (*Manager, *chromemdb.Store) {
	t.Helper()
	e, err := embedding.NewWithClient(client, "fake-embed", 0, 0)
	require.NoError(t, err)
	store := chromemdb.NewInMemory()
	m, err := NewManager(store, e, Options{Collection: "kb", Dimension: dim, BatchSize: batch})
	require.NoError(t, err)
	require.NoError(t, m.ResetCollection(context.Background()))
	return m, store
}

func sampleChunks(t *testing.T) []models.Chunk {
	t.Helper()
	chunks, err := corpus.BuildChunks(context.Background(), corpus.Sample(), corpus.Options{ChunkSize: 800})
	require.NoError(t, err)
	return chunks
}

func count(t *testing.T, s *chromemdb.Store) int {
	t.Helper()
	n, err := s.Count(context.Background(), "kb")
	require.NoError(t, err)
	return n
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, embeddingtest.New(dim), 0)
	chunks := sampleChunks(t)

	report, err := m.Ingest(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), report.Upserted)
	assert.Equal(t, len(chunks), count(t, store))

	report, err = m.Ingest(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), report.Upserted)
	assert.Equal(t, len(chunks), count(t, store))
}

func TestIngestSkipsBlankChunksAndKeepsAlignment(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, embeddingtest.New(dim), 0)
	chunks := []models.Chunk{
		{SourceCode: "A", Section: models.SectionOverview, Text: "Overview: swim lessons for kids"},
		{SourceCode: "A", Text: "   \n"},
		{SourceCode: "A", Section: models.SectionLocation, Text: "Location: north pool deck"},
		{SourceCode: "A", Text: ""},
	}

	report, err := m.Ingest(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Upserted: 2, Skipped: 2}, report)
	assert.Equal(t, 2, count(t, store))

	// every stored vector must belong to its own text
	for _, c := range []models.Chunk{chunks[0], chunks[2]} {
		hits, err := store.Search(ctx, "kb", embeddingtest.Vector(c.Text, dim), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, c.Text, hits[0].Metadata[models.MetaText])
		assert.Equal(t, "fake-embed", hits[0].Metadata[models.MetaModel])
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	}
}

func TestIngestCollapsesDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, embeddingtest.New(dim), 0)
	c := models.Chunk{SourceCode: "A", Section: models.SectionGeneral, Text: "same text"}

	report, err := m.Ingest(ctx, []models.Chunk{c, c})
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Upserted: 1, Duplicates: 1}, report)
	assert.Equal(t, 1, count(t, store))
}

func TestIngestBatches(t *testing.T) {
	ctx := context.Background()
	client := embeddingtest.New(dim)
	m, store := newManager(t, client, 4)
	chunks := sampleChunks(t)

	report, err := m.Ingest(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), report.Upserted)
	assert.Equal(t, (len(chunks)+3)/4, client.Calls())
	assert.Equal(t, len(chunks), count(t, store))
}

func TestIngestEmbeddingFailures(t *testing.T) {
	cases := map[string]func(c *embeddingtest.Client){
		"client error":   func(c *embeddingtest.Client) { c.Err = errors.New("boom") },
		"short response": func(c *embeddingtest.Client) { c.Short = 1 },
		"wrong width":    func(c *embeddingtest.Client) { c.WrongDim = dim + 1 },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			client := embeddingtest.New(dim)
			breakIt(client)
			m, store := newManager(t, client, 0)

			report, err := m.Ingest(context.Background(), sampleChunks(t))
			assert.ErrorIs(t, err, models.ErrEmbeddingFailure)
			assert.Zero(t, report.Upserted)
			assert.Zero(t, count(t, store))
		})
	}
}

func TestIngestKeepsEarlierBatchesOnFailure(t *testing.T) {
	ctx := context.Background()
	client := embeddingtest.New(dim)
	m, store := newManager(t, client, 2)
	chunks := sampleChunks(t)[:4]

	_, err := m.Ingest(ctx, chunks[:2])
	require.NoError(t, err)

	client.Err = errors.New("rate limited")
	report, err := m.Ingest(ctx, chunks[2:])
	assert.ErrorIs(t, err, models.ErrEmbeddingFailure)
	assert.Zero(t, report.Upserted)
	assert.Equal(t, 2, count(t, store))
}

func TestIngestIntoMissingCollection(t *testing.T) {
	e, err := embedding.NewWithClient(embeddingtest.New(dim), "fake-embed", 0, 0)
	require.NoError(t, err)
	m, err := NewManager(chromemdb.NewInMemory(), e, Options{Collection: "kb", Dimension: dim})
	require.NoError(t, err)

	_, err = m.Ingest(context.Background(), []models.Chunk{{SourceCode: "A", Text: "x"}})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestResetCollectionEmptiesIt(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, embeddingtest.New(dim), 0)
	_, err := m.Ingest(ctx, sampleChunks(t))
	require.NoError(t, err)

	require.NoError(t, m.ResetCollection(ctx))
	assert.Zero(t, count(t, store))
}

func TestEnsureCollectionKeepsData(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, embeddingtest.New(dim), 0)
	_, err := m.Ingest(ctx, sampleChunks(t)[:3])
	require.NoError(t, err)

	require.NoError(t, m.EnsureCollection(ctx))
	assert.Equal(t, 3, count(t, store))
}

func TestNewManagerValidates(t *testing.T) {
	e, err := embedding.NewWithClient(embeddingtest.New(dim), "fake-embed", 0, 0)
	require.NoError(t, err)
	store := chromemdb.NewInMemory()

	_, err = NewManager(store, e, Options{Dimension: dim})
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = NewManager(store, e, Options{Collection: "kb"})
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = NewManager(nil, e, Options{Collection: "kb", Dimension: dim})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
