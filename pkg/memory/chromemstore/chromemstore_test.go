package chromemstore

import (
	"context"
	"testing"

	"github.com/ailrun/ail/pkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StoreAndRetrieve(t *testing.T) {
	s, err := New(Config{Collection: "test"})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := s.Store(ctx, memory.Record{
		Content:         "deployment rolled back",
		Metadata:        map[string]interface{}{"kind": "incident"},
		CreatedAtUnixMS: 1000,
		Embedding:       []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	records, err := s.Retrieve(ctx, []float32{0.1, 0.2, 0.3}, memory.Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "deployment rolled back", records[0].Content)
}

func TestStore_RetrieveEmptyCollection(t *testing.T) {
	s, err := New(Config{Collection: "empty"})
	require.NoError(t, err)

	records, err := s.Retrieve(context.Background(), []float32{0.1}, memory.Filters{}, 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_DefaultsCollectionName(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
