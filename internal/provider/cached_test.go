package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"archivist/internal/cache"
	"archivist/internal/providerparams"
	"archivist/internal/retry"
)

type fakeBackend struct {
	embedCalls int
	queryCalls int
	vec        []float32
}

func (f *fakeBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	return f.vec, nil
}
func (f *fakeBackend) Chunk(ctx context.Context, prompt string) (ChunkPlan, error) {
	return ChunkPlan{ChunkStartLines: []int{1}}, nil
}
func (f *fakeBackend) Rerank(ctx context.Context, prompt string) (RerankResult, error) {
	return RerankResult{RerankedIndices: []int{0}}, nil
}
func (f *fakeBackend) Query(ctx context.Context, prompt string) (QueryResult, error) {
	f.queryCalls++
	return QueryResult{AnswerConclusion: "ok"}, nil
}
func (f *fakeBackend) Vision(ctx context.Context, prompt string, imageB64 string) (VisionResult, error) {
	return VisionResult{Answer: "ok"}, nil
}

func newTestCached(backend Backend) *Cached {
	c := cache.New(cache.NewMemoryBackend(), false, nil)
	r := retry.New(0, time.Millisecond, time.Millisecond, 2, 1, nil, nil)
	return New(backend, c, r, providerparams.Params{ModelEmbed: "m"})
}

func TestCachedEmbedHitsCacheOnSecondCall(t *testing.T) {
	backend := &fakeBackend{vec: []float32{1, 2, 3}}
	c := newTestCached(backend)

	v1, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, v1)

	v2, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, backend.embedCalls)
}

func TestCachedEmbedDistinctInputsMiss(t *testing.T) {
	backend := &fakeBackend{vec: []float32{1}}
	c := newTestCached(backend)

	_, err := c.Embed(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, 2, backend.embedCalls)
}

func TestCachedQueryNeverCached(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestCached(backend)

	r1, err := c.Query(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, "ok", r1.AnswerConclusion)

	_, err = c.Query(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, 2, backend.queryCalls)
}
