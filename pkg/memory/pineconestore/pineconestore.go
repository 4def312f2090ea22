// Package pineconestore adapts github.com/pinecone-io/go-pinecone into a
// memory.Store, for deployments on Pinecone's managed vector database.
package pineconestore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ailrun/ail/pkg/memory"
)

// Config configures the Pinecone-backed store.
type Config struct {
	APIKey    string
	Host      string
	IndexName string
}

// Store implements memory.Store over a single Pinecone index.
type Store struct {
	client    *pinecone.Client
	indexName string
}

// New creates a Pinecone client bound to the configured index.
func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pineconestore: api key is required")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}

	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("pineconestore: create client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "ail-memories"
	}

	return &Store{client: client, indexName: indexName}, nil
}

func (s *Store) indexConn(ctx context.Context) (*pinecone.IndexConnection, error) {
	index, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("pineconestore: describe index %s: %w", s.indexName, err)
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: index.Host})
	if err != nil {
		return nil, fmt.Errorf("pineconestore: connect to index: %w", err)
	}
	return conn, nil
}

// Retrieve queries the index for the nearest vectors to queryEmbedding.
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, filters memory.Filters, limit int) ([]memory.Record, error) {
	if limit <= 0 {
		limit = 10
	}

	conn, err := s.indexConn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryEmbedding,
		TopK:            uint32(limit),
		IncludeMetadata: true,
		IncludeValues:   true,
	}
	if f := buildFilter(filters); f != nil {
		req.MetadataFilter = f
	}

	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pineconestore: query: %w", err)
	}

	return toRecords(resp.Matches), nil
}

// Store upserts record, assigning a fresh UUID when record.ID is empty.
func (s *Store) Store(ctx context.Context, record memory.Record) (string, error) {
	conn, err := s.indexConn(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	metaMap := make(map[string]interface{}, len(record.Metadata)+2)
	for k, v := range record.Metadata {
		metaMap[k] = v
	}
	metaMap["content"] = record.Content
	metaMap["created_at_unix_ms"] = record.CreatedAtUnixMS

	meta, err := structpb.NewStruct(metaMap)
	if err != nil {
		return "", fmt.Errorf("pineconestore: convert metadata: %w", err)
	}

	vector := &pinecone.Vector{
		Id:       id,
		Values:   record.Embedding,
		Metadata: meta,
	}

	if _, err := conn.UpsertVectors(ctx, []*pinecone.Vector{vector}); err != nil {
		return "", fmt.Errorf("pineconestore: upsert: %w", err)
	}

	return id, nil
}

func buildFilter(f memory.Filters) *pinecone.MetadataFilter {
	raw := make(map[string]interface{})
	if len(f.TimeReferences) > 0 {
		raw["time_reference"] = f.TimeReferences[0]
	}
	if len(f.MemoryTypes) > 0 {
		raw["memory_type"] = f.MemoryTypes[0]
	}
	if len(raw) == 0 {
		return nil
	}
	filter, err := structpb.NewStruct(raw)
	if err != nil {
		return nil
	}
	return filter
}

func toRecords(matches []*pinecone.ScoredVector) []memory.Record {
	out := make([]memory.Record, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}

		metadata := make(map[string]interface{})
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				metadata[k] = v
			}
		}

		content := ""
		if v, ok := metadata["content"].(string); ok {
			content = v
			delete(metadata, "content")
		}

		var createdAt int64
		if v, ok := metadata["created_at_unix_ms"].(float64); ok {
			createdAt = int64(v)
			delete(metadata, "created_at_unix_ms")
		}

		out = append(out, memory.Record{
			ID:              m.Vector.Id,
			Content:         content,
			Metadata:        metadata,
			CreatedAtUnixMS: createdAt,
			SimilarityScore: float64(m.Score),
		})
	}
	return out
}

var _ memory.Store = (*Store)(nil)
