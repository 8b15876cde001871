package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"archivist/internal/chunk"
	"archivist/internal/provider"
)

type fakeEmbedProvider struct {
	fail map[int]error
}

func (f *fakeEmbedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail != nil {
		if err, ok := f.fail[len(text)]; ok {
			return nil, err
		}
	}
	return []float32{float32(len(text))}, nil
}
func (f *fakeEmbedProvider) Chunk(ctx context.Context, prompt string) (provider.ChunkPlan, error) {
	return provider.ChunkPlan{}, nil
}
func (f *fakeEmbedProvider) Rerank(ctx context.Context, prompt string) (provider.RerankResult, error) {
	return provider.RerankResult{}, nil
}
func (f *fakeEmbedProvider) Query(ctx context.Context, prompt string) (provider.QueryResult, error) {
	return provider.QueryResult{}, nil
}
func (f *fakeEmbedProvider) Vision(ctx context.Context, prompt, imageB64 string) (provider.VisionResult, error) {
	return provider.VisionResult{}, nil
}

func TestEmbedChunksPreservesOrder(t *testing.T) {
	chunks := []chunk.Chunk{{Text: "a"}, {Text: "bb"}, {Text: "ccc"}}
	p := &fakeEmbedProvider{}
	results := EmbedChunks(context.Background(), p, chunks, 2)
	require.Len(t, results, 3)
	require.Equal(t, float32(1), results[0].Vector[0])
	require.Equal(t, float32(2), results[1].Vector[0])
	require.Equal(t, float32(3), results[2].Vector[0])
}

func TestEmbedChunksDropsOnMaxTokens(t *testing.T) {
	chunks := []chunk.Chunk{{Text: "x"}}
	p := &fakeEmbedProvider{fail: map[int]error{1: provider.ErrMaxTokensExceeded}}
	results := EmbedChunks(context.Background(), p, chunks, 1)
	require.Nil(t, results[0].Vector)
	require.NoError(t, results[0].Err)
}

func TestEmbedChunksSurfacesOtherErrors(t *testing.T) {
	chunks := []chunk.Chunk{{Text: "x"}}
	wantErr := errors.New("boom")
	p := &fakeEmbedProvider{fail: map[int]error{1: wantErr}}
	results := EmbedChunks(context.Background(), p, chunks, 1)
	require.Nil(t, results[0].Vector)
	require.ErrorIs(t, results[0].Err, wantErr)
}
