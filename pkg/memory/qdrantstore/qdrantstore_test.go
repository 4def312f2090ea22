package qdrantstore

import (
	"testing"

	"github.com/ailrun/ail/pkg/memory"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilter_Empty(t *testing.T) {
	assert.Nil(t, buildFilter(memory.Filters{}))
}

func TestBuildFilter_TimeAndType(t *testing.T) {
	f := buildFilter(memory.Filters{TimeReferences: []string{"yesterday"}, MemoryTypes: []string{"episodic"}})
	require.NotNil(t, f)
	assert.Len(t, f.Must, 2)
}

func TestToRecord_ExtractsContentAndCreatedAt(t *testing.T) {
	point := &qdrant.ScoredPoint{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "abc"}},
		Payload: map[string]*qdrant.Value{
			"content":            {Kind: &qdrant.Value_StringValue{StringValue: "hello"}},
			"created_at_unix_ms": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 500}},
			"kind":               {Kind: &qdrant.Value_StringValue{StringValue: "incident"}},
		},
		Score: 0.75,
	}

	r := toRecord(point)
	assert.Equal(t, "abc", r.ID)
	assert.Equal(t, "hello", r.Content)
	assert.Equal(t, int64(500), r.CreatedAtUnixMS)
	assert.Equal(t, "incident", r.Metadata["kind"])
	assert.Equal(t, 0.75, r.SimilarityScore)
}
