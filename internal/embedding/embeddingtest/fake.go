// Package embeddingtest provides a deterministic embedder client for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// Client hashes each word of a text into one of Dim buckets and returns the
// normalized counts. Texts that share words land close to each other.
type Client struct {
	Dim int
	// Err, when set, is returned from every call.
	Err error
	// Short drops this many vectors from every response.
	Short int
	// WrongDim, when positive, is used as the vector width instead of Dim.
	WrongDim int

	mu    sync.Mutex
	calls int
	texts int
}

func New(dim int) *Client {
	return &Client{Dim: dim}
}

func (c *Client) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls++
	c.texts += len(texts)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}

	dim := c.Dim
	if c.WrongDim > 0 {
		dim = c.WrongDim
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, Vector(text, dim))
	}
	if c.Short > 0 {
		out = out[:max(0, len(out)-c.Short)]
	}
	return out, nil
}

// Calls reports how many CreateEmbedding requests were made.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Texts reports how many texts were embedded in total.
func (c *Client) Texts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts
}

// Vector is the embedding Client produces for text.
func Vector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
