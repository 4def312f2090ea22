// Package embedder produces the vector embeddings memory.Record.Embedding
// and query.Retrieve calls need, independent of which memory.Store backend
// stores them.
package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	"google.golang.org/genai"
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// GeminiConfig configures the Gemini-backed embedder.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini embeds text via Google's genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed embedder.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("embedder: create gemini client: %w", err)
	}

	return &Gemini{client: client, model: cfg.Model}, nil
}

// Embed returns text's embedding vector.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedder: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedder: empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// Dimension reports text-embedding-004's native dimension.
func (g *Gemini) Dimension() int { return 768 }

// Stub is a dependency-free, deterministic embedder for tests: it hashes
// text into a fixed-size unit vector, so equal text always embeds equal,
// and distinct text embeds distinct with overwhelming probability.
type Stub struct {
	dim int
}

// NewStub creates a deterministic embedder of the given dimension.
func NewStub(dim int) *Stub {
	if dim <= 0 {
		dim = 32
	}
	return &Stub{dim: dim}
}

// Embed hashes text into a normalized vector.
func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, s.dim)
	var norm float64
	for i := range vec {
		b := sum[i%len(sum)]
		v := float32(b)/127.5 - 1
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Dimension returns the configured vector size.
func (s *Stub) Dimension() int { return s.dim }

var (
	_ Embedder = (*Gemini)(nil)
	_ Embedder = (*Stub)(nil)
)
