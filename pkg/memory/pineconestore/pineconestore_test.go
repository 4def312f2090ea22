package pineconestore

import (
	"testing"

	"github.com/ailrun/ail/pkg/memory"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestBuildFilter_Empty(t *testing.T) {
	assert.Nil(t, buildFilter(memory.Filters{}))
}

func TestBuildFilter_NonEmpty(t *testing.T) {
	f := buildFilter(memory.Filters{MemoryTypes: []string{"semantic"}})
	assert.NotNil(t, f)
}

func TestToRecords_ExtractsContentAndDropsReservedKeys(t *testing.T) {
	meta, err := structpb.NewStruct(map[string]interface{}{
		"content":            "hello world",
		"created_at_unix_ms": float64(1234),
		"kind":               "note",
	})
	assert.NoError(t, err)

	matches := []*pinecone.ScoredVector{
		{
			Score: 0.5,
			Vector: &pinecone.Vector{
				Id:       "v1",
				Values:   []float32{0.1, 0.2},
				Metadata: meta,
			},
		},
	}

	records := toRecords(matches)
	assert.Len(t, records, 1)
	assert.Equal(t, "v1", records[0].ID)
	assert.Equal(t, "hello world", records[0].Content)
	assert.Equal(t, int64(1234), records[0].CreatedAtUnixMS)
	assert.Equal(t, "note", records[0].Metadata["kind"])
	_, hasContent := records[0].Metadata["content"]
	assert.False(t, hasContent)
}

func TestToRecords_SkipsNilVector(t *testing.T) {
	matches := []*pinecone.ScoredVector{{Score: 0.1, Vector: nil}}
	assert.Empty(t, toRecords(matches))
}
