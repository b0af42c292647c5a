package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-rag/internal/config"
	"activity-rag/internal/embedding/embeddingtest"
	"activity-rag/internal/models"
)

func TestEmbedReturnsOneVectorPerText(t *testing.T) {
	client := embeddingtest.New(16)
	e, err := NewWithClient(client, "fake-model", 0, 0)
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), []string{"swim lessons", "chess club", "swim lessons"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 16)
	}
	assert.Equal(t, vectors[0], vectors[2])
	assert.Equal(t, "fake-model", e.Model())
}

func TestEmbedEmptyInputSkipsClient(t *testing.T) {
	client := embeddingtest.New(8)
	e, err := NewWithClient(client, "fake-model", 0, 0)
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, client.Calls())
}

func TestEmbedWrapsClientFailure(t *testing.T) {
	client := embeddingtest.New(8)
	client.Err = errors.New("connection refused")
	e, err := NewWithClient(client, "fake-model", 0, 0)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, models.ErrEmbeddingFailure)
	assert.ErrorContains(t, err, "connection refused")
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	client := embeddingtest.New(8)
	client.Short = 1
	e, err := NewWithClient(client, "fake-model", 0, 0)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, models.ErrEmbeddingFailure)
}

func TestEmbedQuery(t *testing.T) {
	e, err := NewWithClient(embeddingtest.New(8), "fake-model", 100, 0)
	require.NoError(t, err)

	v, err := e.EmbedQuery(context.Background(), "where is the pool")
	require.NoError(t, err)
	assert.Equal(t, embeddingtest.Vector("where is the pool", 8), v)
}

func TestEmbedHonoursCancelledContext(t *testing.T) {
	e, err := NewWithClient(embeddingtest.New(8), "fake-model", 0.001, 0)
	require.NoError(t, err)

	// first call consumes the only token
	_, err = e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, []string{"b"})
	assert.ErrorIs(t, err, models.ErrEmbeddingFailure)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(&config.LLMConfig{Provider: "cohere", BaseURL: "http://localhost", Model: "m"})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNewBuildsOllamaEmbedder(t *testing.T) {
	e, err := New(&config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "mxbai-embed-large"})
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", e.Model())
}
