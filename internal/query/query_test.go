package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"archivist/internal/config"
	"archivist/internal/provider"
	"archivist/internal/vectorstore"
)

type fakeProvider struct {
	queryResult provider.QueryResult
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeProvider) Chunk(ctx context.Context, prompt string) (provider.ChunkPlan, error) {
	return provider.ChunkPlan{}, nil
}

func (f *fakeProvider) Rerank(ctx context.Context, prompt string) (provider.RerankResult, error) {
	return provider.RerankResult{RerankedIndices: []int{0}}, nil
}

func (f *fakeProvider) Query(ctx context.Context, prompt string) (provider.QueryResult, error) {
	return f.queryResult, nil
}

func (f *fakeProvider) Vision(ctx context.Context, prompt, imageB64 string) (provider.VisionResult, error) {
	return provider.VisionResult{}, nil
}

func seedStore(t *testing.T) (*vectorstore.Memory, string) {
	t.Helper()
	store := vectorstore.NewMemory()
	point := vectorstore.Point{
		ID:     "p1",
		Vector: []float32{1, 0, 0},
		Payload: vectorstore.Payload{
			FilePath:    "a.txt",
			FileMtime:   42,
			ChunkIndex:  0,
			ChunksTotal: 1,
			ChunkText:   "relevant content",
			LineRange:   []int{1, 3},
		},
	}
	require.NoError(t, store.Upsert(context.Background(), []vectorstore.Point{point}))
	return store, pointHash(point)
}

func TestRunResolvesReferenceTokens(t *testing.T) {
	store, hash := seedStore(t)
	fp := &fakeProvider{
		queryResult: provider.QueryResult{
			AnswerList: []provider.Answer{
				{Answer: "Here is the answer.", ChunkRefList: []string{"<<< " + hash + " >>>"}},
			},
			AnswerConclusion: "Done.",
		},
	}
	p := &Pipeline{Provider: fp, Store: store, Options: config.Default()}

	res, err := p.Run(context.Background(), "what is relevant?")
	require.NoError(t, err)
	require.False(t, res.IsRejected)
	require.Len(t, res.Answers, 1)
	require.Equal(t, []int{1}, res.Answers[0].ReferenceNums)
	require.Len(t, res.References, 1)
	require.Equal(t, "a.txt", res.References[0].Point.Payload.FilePath)

	rendered := Render(res)
	require.Contains(t, rendered, "Here is the answer.")
	require.Contains(t, rendered, "**[1]**")
}

func TestRunDiscardsUnresolvableReferenceTokens(t *testing.T) {
	store, _ := seedStore(t)
	fp := &fakeProvider{
		queryResult: provider.QueryResult{
			AnswerList: []provider.Answer{
				{Answer: "No citation matches.", ChunkRefList: []string{"<<< ffffffffffffffff >>>"}},
			},
		},
	}
	opts := config.Default()
	opts.HashRepairEnable = false
	p := &Pipeline{Provider: fp, Store: store, Options: opts}

	res, err := p.Run(context.Background(), "question")
	require.NoError(t, err)
	require.Empty(t, res.Answers[0].ReferenceNums)
	require.Empty(t, res.References)
}

func TestRunSurfacesRejection(t *testing.T) {
	store, _ := seedStore(t)
	fp := &fakeProvider{queryResult: provider.QueryResult{IsRejected: true, RejectionReason: "blocked"}}
	p := &Pipeline{Provider: fp, Store: store, Options: config.Default()}

	res, err := p.Run(context.Background(), "question")
	require.NoError(t, err)
	require.True(t, res.IsRejected)
	require.Equal(t, "blocked", res.RejectionReason)
	require.Empty(t, res.Answers)
}

func TestRunEmptyRetrievalSkipsSynthesis(t *testing.T) {
	store := vectorstore.NewMemory()
	fp := &fakeProvider{}
	p := &Pipeline{Provider: fp, Store: store, Options: config.Default()}

	res, err := p.Run(context.Background(), "question")
	require.NoError(t, err)
	require.Empty(t, res.Answers)
}

func TestIsPermutation(t *testing.T) {
	require.True(t, isPermutation([]int{2, 0, 1}, 3))
	require.False(t, isPermutation([]int{0, 0, 1}, 3))
	require.False(t, isPermutation([]int{0, 1}, 3))
}

func TestCollapsedRangeFormatting(t *testing.T) {
	require.Equal(t, "", formatRange(nil))
	require.Equal(t, "[5]", formatRange([]int{5}))
	require.Equal(t, "[3, 7]", formatRange([]int{3, 7}))
}
