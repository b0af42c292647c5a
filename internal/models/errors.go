package models

import "errors"

var (
	// ErrConfiguration is fatal: a model or store endpoint is missing or invalid.
	ErrConfiguration = errors.New("configuration error")

	// ErrStoreUnavailable means the backing vector store could not serve the call.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbeddingFailure rejects the current batch. Earlier batches stay upserted.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrMalformedChunk marks a chunk with empty or whitespace-only text.
	ErrMalformedChunk = errors.New("malformed chunk")

	ErrInvalidInput = errors.New("invalid input")

	// ErrContextUnavailable is returned by retrieval when the pipeline is broken,
	// as opposed to a query that simply matched nothing.
	ErrContextUnavailable = errors.New("context unavailable")
)
