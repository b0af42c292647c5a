package qdrantdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

// Store keeps chunk records as Qdrant points with a string payload.
type Store struct {
	client *qdrant.Client
}

func New(cfg *config.QdrantConfig) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to qdrant at %s:%d: %w", models.ErrStoreUnavailable, cfg.Host, cfg.Port, err)
	}
	log.Debug().Str("host", cfg.Host).Int("port", cfg.Port).Msg("Connected to qdrant")
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	return exists, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("%w: delete collection %s: %w", models.ErrStoreUnavailable, name, err)
	}
	return nil
}

// Upsert writes records and waits until Qdrant has applied them.
func (s *Store) Upsert(ctx context.Context, collection string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         toPoints(records),
	})
	if err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	return nil
}

// Count reports the exact number of points in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", models.ErrStoreUnavailable, collection, err)
	}
	return int(n), nil
}

func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK int) ([]models.Hit, error) {
	if topK <= 0 {
		return []models.Hit{}, nil
	}
	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", models.ErrStoreUnavailable, collection, err)
	}

	hits := make([]models.Hit, 0, len(resp))
	for _, p := range resp {
		hits = append(hits, models.Hit{
			ID:       pointID(p.GetId()),
			Score:    float64(p.GetScore()),
			Metadata: toMetadata(p.GetPayload()),
		})
	}
	return hits, nil
}

func toPoints(records []models.Record) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		payload := make(map[string]*qdrant.Value, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: payload,
		})
	}
	return points
}

func pointID(id *qdrant.PointId) string {
	switch x := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(x.Num, 10)
	}
	return ""
}

// toMetadata flattens a payload back into string metadata. Records written
// by this store only carry strings; anything else is formatted.
func toMetadata(payload map[string]*qdrant.Value) map[string]string {
	md := make(map[string]string, len(payload))
	for k, v := range payload {
		switch val := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			md[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			md[k] = strconv.FormatInt(val.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			md[k] = strconv.FormatFloat(val.DoubleValue, 'g', -1, 64)
		case *qdrant.Value_BoolValue:
			md[k] = strconv.FormatBool(val.BoolValue)
		}
	}
	return md
}
