package models

import (
	"fmt"
	"strings"
)

// Document is one immutable entry of the source corpus.
type Document struct {
	Code string `json:"code"`
	Body string `json:"body"`
}

// Chunk is the unit that gets embedded, stored and retrieved.
type Chunk struct {
	ID         string    `json:"id"`
	SourceCode string    `json:"source_code"`
	Text       string    `json:"text"`
	Section    Section   `json:"section"`
	Tags       []string  `json:"tags"`
	Link       string    `json:"link"`
	Embedding  []float32 `json:"-"`
}

// RetrievalResult pairs a chunk with its similarity score (higher is closer).
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Record is what a vector store persists for one chunk.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Hit is a raw nearest-neighbour match returned by a vector store.
type Hit struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// BuildTags returns the lowercased, ordered and de-duplicated tag set.
func BuildTags(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	tags := make([]string, 0, len(values))
	for _, v := range values {
		t := strings.ToLower(strings.TrimSpace(v))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// BuildLink returns the deep link back to a document section.
func BuildLink(base, sourceCode string, section Section) string {
	if base == "" {
		base = DefaultLinkBase
	}
	return fmt.Sprintf("%s/%s#%s", strings.TrimRight(base, "/"), sourceCode, section.Lower())
}

// ToRecord converts a chunk into a store record stamped with the embedding model.
func (c Chunk) ToRecord(model string) Record {
	return Record{
		ID:     c.ID,
		Vector: c.Embedding,
		Metadata: map[string]string{
			MetaSourceCode: c.SourceCode,
			MetaSection:    string(c.Section),
			MetaTags:       strings.Join(c.Tags, TagSeparator),
			MetaLink:       c.Link,
			MetaText:       c.Text,
			MetaModel:      model,
		},
	}
}

// ChunkFromHit rebuilds the chunk carried by a store hit.
func ChunkFromHit(h Hit) Chunk {
	c := Chunk{
		ID:         h.ID,
		SourceCode: h.Metadata[MetaSourceCode],
		Text:       h.Metadata[MetaText],
		Section:    Section(h.Metadata[MetaSection]),
		Link:       h.Metadata[MetaLink],
	}
	if tags := h.Metadata[MetaTags]; tags != "" {
		c.Tags = strings.Split(tags, TagSeparator)
	}
	if c.Section == "" {
		c.Section = SectionGeneral
	}
	return c
}
