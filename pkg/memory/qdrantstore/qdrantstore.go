// Package qdrantstore adapts github.com/qdrant/go-client into a
// memory.Store, for deployments that need an external, scalable vector
// database rather than the embedded default.
package qdrantstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ailrun/ail/pkg/memory"
)

// Config configures the Qdrant-backed store.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	// VectorSize sizes the collection on first use.
	VectorSize uint64
}

// Store implements memory.Store over a Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
}

// New dials Qdrant and ensures the configured collection exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "memories"
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 768
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	s := &Store{client: client, collection: cfg.Collection, vectorSize: cfg.VectorSize}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: check collection: %w", err)
	}
	if !exists {
		if err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return nil, fmt.Errorf("qdrantstore: create collection: %w", err)
		}
	}

	return s, nil
}

// Retrieve searches the collection for the nearest points to queryEmbedding.
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, filters memory.Filters, limit int) ([]memory.Record, error) {
	if limit <= 0 {
		limit = 10
	}

	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         queryEmbedding,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if f := buildFilter(filters); f != nil {
		req.Filter = f
	}

	results, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: search: %w", err)
	}

	out := make([]memory.Record, 0, len(results.Result))
	for _, p := range results.Result {
		out = append(out, toRecord(p))
	}
	return out, nil
}

// Store upserts record as a point, assigning a fresh UUID when empty.
func (s *Store) Store(ctx context.Context, record memory.Record) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	payload := make(map[string]*qdrant.Value, len(record.Metadata)+2)
	for k, v := range record.Metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			return "", fmt.Errorf("qdrantstore: convert metadata %q: %w", k, err)
		}
		payload[k] = val
	}
	contentVal, err := qdrant.NewValue(record.Content)
	if err != nil {
		return "", fmt.Errorf("qdrantstore: convert content: %w", err)
	}
	payload["content"] = contentVal

	createdVal, err := qdrant.NewValue(record.CreatedAtUnixMS)
	if err != nil {
		return "", fmt.Errorf("qdrantstore: convert created_at: %w", err)
	}
	payload["created_at_unix_ms"] = createdVal

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(record.Embedding...),
		Payload: payload,
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return "", fmt.Errorf("qdrantstore: upsert: %w", err)
	}

	return id, nil
}

func buildFilter(f memory.Filters) *qdrant.Filter {
	raw := make(map[string]string)
	if len(f.TimeReferences) > 0 {
		raw["time_reference"] = f.TimeReferences[0]
	}
	if len(f.MemoryTypes) > 0 {
		raw["memory_type"] = f.MemoryTypes[0]
	}
	if len(raw) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(raw))
	for key, value := range raw {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func toRecord(p *qdrant.ScoredPoint) memory.Record {
	meta := make(map[string]interface{})
	content := ""
	var createdAt int64

	if p.Payload != nil {
		for key, value := range p.Payload {
			switch v := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				if key == "content" {
					content = v.StringValue
				} else {
					meta[key] = v.StringValue
				}
			case *qdrant.Value_IntegerValue:
				if key == "created_at_unix_ms" {
					createdAt = v.IntegerValue
				} else {
					meta[key] = v.IntegerValue
				}
			case *qdrant.Value_DoubleValue:
				meta[key] = v.DoubleValue
			case *qdrant.Value_BoolValue:
				meta[key] = v.BoolValue
			default:
				meta[key] = value
			}
		}
	}

	var id string
	if p.Id != nil && p.Id.PointIdOptions != nil {
		switch idType := p.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Uuid:
			id = idType.Uuid
		case *qdrant.PointId_Num:
			id = fmt.Sprintf("%d", idType.Num)
		}
	}

	return memory.Record{
		ID:              id,
		Content:         content,
		Metadata:        meta,
		CreatedAtUnixMS: createdAt,
		SimilarityScore: float64(p.Score),
	}
}

var _ memory.Store = (*Store)(nil)
