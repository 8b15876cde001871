package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryUpsertSearchDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: Payload{FilePath: "f", ChunkIndex: 0, ChunksTotal: 2, ChunkText: "x"}},
		{ID: "b", Vector: []float32{0, 1}, Payload: Payload{FilePath: "f", ChunkIndex: 1, ChunksTotal: 2, ChunkText: "y"}},
	}))

	results, err := m.Search(ctx, []float32{1, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].Point.ID)

	n, err := m.Count(ctx, Filter{Equals: map[string]string{"file_path": "f"}}, true)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, m.DeleteBy(ctx, Filter{Equals: map[string]string{"file_path": "f"}}))
	n, err = m.Count(ctx, Filter{}, true)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMemoryFetchOrdersByChunkIndex(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, []Point{
		{ID: "b", Vector: []float32{1}, Payload: Payload{FilePath: "f", ChunkIndex: 1, ChunksTotal: 2}},
		{ID: "a", Vector: []float32{1}, Payload: Payload{FilePath: "f", ChunkIndex: 0, ChunksTotal: 2}},
	}))
	points, err := m.Fetch(ctx, Filter{Equals: map[string]string{"file_path": "f"}}, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, 0, points[0].Payload.ChunkIndex)
	require.Equal(t, 1, points[1].Payload.ChunkIndex)
}
