package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_Deterministic(t *testing.T) {
	s := NewStub(16)
	ctx := context.Background()

	a, err := s.Embed(ctx, "deployment failed")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "deployment failed")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestStub_DistinctTextsDiffer(t *testing.T) {
	s := NewStub(16)
	ctx := context.Background()

	a, err := s.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStub_DefaultDimension(t *testing.T) {
	s := NewStub(0)
	assert.Equal(t, 32, s.Dimension())
}
