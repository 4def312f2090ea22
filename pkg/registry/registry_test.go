package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterAndGet(t *testing.T) {
	r := NewBaseRegistry[int]()

	require.NoError(t, r.Register("a", 1))
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestBaseRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewBaseRegistry[string]()
	require.NoError(t, r.Register("x", "one"))
	err := r.Register("x", "two")
	require.Error(t, err)
}

func TestBaseRegistry_EmptyNameRejected(t *testing.T) {
	r := NewBaseRegistry[string]()
	err := r.Register("", "one")
	require.Error(t, err)
}

func TestBaseRegistry_RemoveAndClear(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	assert.Equal(t, 2, r.Count())

	require.NoError(t, r.Remove("a"))
	assert.Equal(t, 1, r.Count())
	require.Error(t, r.Remove("a"))

	r.Clear()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.List())
}
