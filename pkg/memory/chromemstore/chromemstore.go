// Package chromemstore adapts github.com/philippgille/chromem-go into a
// memory.Store. It is the default backend: pure Go, no external service,
// optional gzip-compressed file persistence.
package chromemstore

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/ailrun/ail/pkg/memory"
)

// Config configures the chromem-backed store.
type Config struct {
	// Collection is the chromem collection name memories are stored under.
	Collection string

	// PersistPath, if set, enables gzip-compressed file persistence.
	PersistPath string
}

// Store implements memory.Store over an in-process chromem-go database.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	persist    string
}

// New opens (or creates) the configured collection.
func New(cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "memories"
	}

	var db *chromem.DB
	if cfg.PersistPath != "" {
		if _, err := os.Stat(cfg.PersistPath); err == nil {
			loaded, err := chromem.NewPersistentDB(cfg.PersistPath, true)
			if err != nil {
				return nil, fmt.Errorf("chromemstore: load persisted db: %w", err)
			}
			db = loaded
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always pre-computed by the caller; chromem's
	// embedding func is never invoked.
	identity := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("chromemstore: embedding func invoked, vectors must be pre-computed")
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, identity)
	if err != nil {
		return nil, fmt.Errorf("chromemstore: get or create collection %q: %w", cfg.Collection, err)
	}

	return &Store{db: db, collection: col, persist: cfg.PersistPath}, nil
}

// Retrieve ranks stored documents by cosine similarity to queryEmbedding.
func (s *Store) Retrieve(ctx context.Context, queryEmbedding []float32, filters memory.Filters, limit int) ([]memory.Record, error) {
	if limit <= 0 {
		limit = 10
	}

	where := whereFromFilters(filters)

	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if limit > n {
		limit = n
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromemstore: query: %w", err)
	}

	out := make([]memory.Record, 0, len(results))
	for _, r := range results {
		out = append(out, toRecord(r))
	}
	return out, nil
}

// Store upserts record, assigning a fresh ID when record.ID is empty.
func (s *Store) Store(ctx context.Context, record memory.Record) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	meta := stringMetadata(record.Metadata)
	meta["created_at_unix_ms"] = fmt.Sprint(record.CreatedAtUnixMS)

	doc := chromem.Document{
		ID:        id,
		Content:   record.Content,
		Metadata:  meta,
		Embedding: record.Embedding,
	}

	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return "", fmt.Errorf("chromemstore: add document: %w", err)
	}

	if s.persist != "" {
		if err := s.db.Export(s.persist, true, ""); err != nil {
			return "", fmt.Errorf("chromemstore: persist: %w", err)
		}
	}

	return id, nil
}

func whereFromFilters(f memory.Filters) map[string]string {
	if len(f.TimeReferences) == 0 && len(f.MemoryTypes) == 0 {
		return nil
	}
	where := make(map[string]string)
	if len(f.TimeReferences) > 0 {
		where["time_reference"] = f.TimeReferences[0]
	}
	if len(f.MemoryTypes) > 0 {
		where["memory_type"] = f.MemoryTypes[0]
	}
	return where
}

func stringMetadata(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func toRecord(r chromem.Result) memory.Record {
	meta := make(map[string]interface{}, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return memory.Record{
		ID:              r.ID,
		Content:         r.Content,
		Metadata:        meta,
		SimilarityScore: float64(r.Similarity),
	}
}

var _ memory.Store = (*Store)(nil)
