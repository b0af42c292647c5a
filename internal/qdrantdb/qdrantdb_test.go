package qdrantdb

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-rag/internal/identity"
	"activity-rag/internal/models"
)

func TestPointsCarryIDVectorAndPayload(t *testing.T) {
	id := identity.StableID("ACT-101", "Overview", "Overview: yoga")
	records := []models.Record{{
		ID:       id,
		Vector:   []float32{0.1, 0.2},
		Metadata: map[string]string{models.MetaText: "Overview: yoga", models.MetaSection: "Overview"},
	}}

	points := toPoints(records)
	require.Len(t, points, 1)
	assert.Equal(t, id, points[0].GetId().GetUuid())
	assert.Equal(t, "Overview: yoga", points[0].GetPayload()[models.MetaText].GetStringValue())
	assert.NotNil(t, points[0].GetVectors().GetVector())
}

func TestPayloadRoundTrip(t *testing.T) {
	md := map[string]string{
		models.MetaSourceCode: "ACT-202",
		models.MetaTags:       "act-202,location",
		models.MetaModel:      "mxbai-embed-large",
	}
	points := toPoints([]models.Record{{ID: identity.StableID("a", "b", "c"), Vector: []float32{1}, Metadata: md}})

	assert.Equal(t, md, toMetadata(points[0].GetPayload()))
}

func TestToMetadataFormatsForeignValues(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"count": qdrant.NewValueInt(3),
		"ratio": qdrant.NewValueDouble(0.5),
		"ok":    qdrant.NewValueBool(true),
		"none":  qdrant.NewValueNull(),
	}
	assert.Equal(t, map[string]string{"count": "3", "ratio": "0.5", "ok": "true"}, toMetadata(payload))
}

func TestPointID(t *testing.T) {
	assert.Equal(t, "42", pointID(qdrant.NewIDNum(42)))
	assert.Equal(t, "6f1c0a52-7e8d-4d0a-9a55-7c3a1d2e9f10", pointID(qdrant.NewIDUUID("6f1c0a52-7e8d-4d0a-9a55-7c3a1d2e9f10")))
	assert.Empty(t, pointID(nil))
}
