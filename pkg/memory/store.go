// Package memory defines the narrow interface the kernel and query
// planner use to talk to an external, content-addressed memory
// database; the kernel never owns the store's schema (spec.md §1,
// §9). Concrete backends live in subpackages: chromemstore,
// qdrantstore, and pineconestore.
package memory

import "context"

// Record is one stored memory (spec.md §9). SimilarityScore is
// populated only by Retrieve.
type Record struct {
	ID              string
	Content         string
	Metadata        map[string]interface{}
	CreatedAtUnixMS int64
	SimilarityScore float64
	// Embedding is the pre-computed vector a Store call persists
	// alongside Content; Retrieve never populates it back.
	Embedding []float32
}

// Filters narrows a Retrieve call.
type Filters struct {
	TimeReferences []string
	MemoryTypes    []string
}

// Store is the kernel's entire view of the memory database.
type Store interface {
	// Retrieve returns records ranked by similarity to queryEmbedding,
	// most relevant first, bounded by limit.
	Retrieve(ctx context.Context, queryEmbedding []float32, filters Filters, limit int) ([]Record, error)
	// Store persists record and returns its assigned ID.
	Store(ctx context.Context, record Record) (string, error)
}
