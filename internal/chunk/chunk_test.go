package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"archivist/internal/segment"
)

func sentence(text string, ref int) segment.Sentence {
	return segment.Sentence{Text: text, RangeMin: ref, RangeMax: ref}
}

func TestChunkCoverageAndHeader(t *testing.T) {
	sentences := []segment.Sentence{
		sentence("One.", 1),
		sentence("Two.", 1),
		sentence("Three.", 2),
		sentence("Four.", 2),
	}
	chunkFn := func(ctx context.Context, blockText, fileLabel string) (Plan, error) {
		return Plan{ChunkStartLines: []int{1, 3}, Headers: []string{"Part A", "Part B"}}, nil
	}

	chunks, err := Chunk(context.Background(), sentences, 4, chunkFn, "doc.txt")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var allText string
	for _, c := range chunks {
		allText += c.Text
	}
	for _, s := range sentences {
		require.Contains(t, allText, s.Text)
	}
	require.Contains(t, chunks[0].Text, "# Part A")
}

func TestChunkRangeMonotonicity(t *testing.T) {
	sentences := []segment.Sentence{
		sentence("a", 1), sentence("b", 2), sentence("c", 3), sentence("d", 4),
		sentence("e", 5), sentence("f", 6), sentence("g", 7), sentence("h", 8),
	}
	chunkFn := func(ctx context.Context, blockText, fileLabel string) (Plan, error) {
		return Plan{ChunkStartLines: []int{1, 3}, Headers: []string{"H1", "H2"}}, nil
	}
	chunks, err := Chunk(context.Background(), sentences, 4, chunkFn, "doc.txt")
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		require.GreaterOrEqual(t, chunks[i].RangeMax, chunks[i-1].RangeMax)
	}
}

func TestChunkAllCarryWhenPlanInvalid(t *testing.T) {
	sentences := []segment.Sentence{sentence("only one", 1)}
	calls := 0
	chunkFn := func(ctx context.Context, blockText, fileLabel string) (Plan, error) {
		calls++
		return Plan{ChunkStartLines: []int{1}}, nil // fewer than 2 -> all carry
	}
	chunks, err := Chunk(context.Background(), sentences, 4, chunkFn, "doc.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1) // flushed as the final carry chunk
	require.Equal(t, 1, calls)
}
