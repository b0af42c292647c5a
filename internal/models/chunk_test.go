package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTags(t *testing.T) {
	assert.Equal(t, []string{"act-101", "registration"}, BuildTags("ACT-101", "Registration"))
	assert.Equal(t, []string{"general"}, BuildTags("General", "general", " "))
}

func TestBuildLink(t *testing.T) {
	assert.Equal(t, "https://example.local/activities/ACT-101#location",
		BuildLink("", "ACT-101", SectionLocation))
	assert.Equal(t, "http://docs/x/ACT-9#overview",
		BuildLink("http://docs/x/", "ACT-9", SectionOverview))
}

func TestRecordRoundTrip(t *testing.T) {
	c := Chunk{
		ID:         "id-1",
		SourceCode: "ACT-202",
		Text:       "Location: Riverside Gym Court 2.",
		Section:    SectionLocation,
		Tags:       []string{"act-202", "location"},
		Link:       "https://example.local/activities/ACT-202#location",
		Embedding:  []float32{0.1, 0.2},
	}

	rec := c.ToRecord("mxbai-embed-large")
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "mxbai-embed-large", rec.Metadata[MetaModel])

	got := ChunkFromHit(Hit{ID: rec.ID, Score: 0.9, Metadata: rec.Metadata})
	c.Embedding = nil
	assert.Equal(t, c, got)
}

func TestChunkFromHitDefaultsSection(t *testing.T) {
	got := ChunkFromHit(Hit{ID: "x", Metadata: map[string]string{MetaText: "hello"}})
	assert.Equal(t, SectionGeneral, got.Section)
	assert.Nil(t, got.Tags)
}
