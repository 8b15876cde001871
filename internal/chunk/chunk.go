// Package chunk implements the block-wise, LLM-driven chunk-boundary
// selector with inter-block carry-over and range aggregation.
package chunk

import (
	"context"
	"fmt"
	"strings"

	"archivist/internal/segment"
)

// Chunk is a contiguous segment of a document's sentences, treated as a
// retrieval unit.
type Chunk struct {
	Text     string
	RangeMin int
	RangeMax int
}

// Plan is the provider's chunk-boundary decision for one block of
// sentences: chunk_start_lines is 1-based within the block (including any
// carried-over sentences).
type Plan struct {
	ChunkStartLines []int
	Headers         []string
}

// ChunkFunc calls the provider's chunk operation over the given block text
// (sentences newline-joined) and file label, returning its boundary plan.
// Callers are expected to retry internally per their own RetryPolicy;
// Chunk itself only bounds a small number of schema-validation retries.
type ChunkFunc func(ctx context.Context, blockText string, fileLabel string) (Plan, error)

const maxSchemaRetries = 3

// Chunk partitions sentences into fixed-size blocks of blockSize, calls
// chunkFn for each (prepending the previous block's carry), and emits
// chunks in order. The last block's tail is flushed as a final chunk using
// its own last recorded header.
func Chunk(ctx context.Context, sentences []segment.Sentence, blockSize int, chunkFn ChunkFunc, fileLabel string) ([]Chunk, error) {
	if blockSize < 1 {
		blockSize = 1
	}

	var chunks []Chunk
	var carry []segment.Sentence
	lastHeader := fileLabel

	for start := 0; start < len(sentences); start += blockSize {
		end := start + blockSize
		if end > len(sentences) {
			end = len(sentences)
		}
		block := append(append([]segment.Sentence{}, carry...), sentences[start:end]...)

		plan, err := planWithRetry(ctx, chunkFn, block, fileLabel)
		if err != nil {
			return nil, fmt.Errorf("chunk: %w", err)
		}

		starts := normalizeStartLines(plan.ChunkStartLines, len(block))
		if len(starts) < 2 {
			// Entire block becomes carry; nothing is emitted yet.
			carry = block
			if len(plan.Headers) > 0 {
				lastHeader = plan.Headers[len(plan.Headers)-1]
			}
			continue
		}

		ranges := toRanges(starts, len(block))
		for i := 0; i < len(ranges)-1; i++ {
			header := fileLabel
			if i < len(plan.Headers) {
				header = plan.Headers[i]
			}
			chunks = append(chunks, buildChunk(block[ranges[i][0]:ranges[i][1]], header))
		}
		lastRange := ranges[len(ranges)-1]
		carry = block[lastRange[0]:lastRange[1]]
		if len(plan.Headers) > 0 {
			lastHeader = plan.Headers[len(plan.Headers)-1]
		}
	}

	if len(carry) > 0 {
		chunks = append(chunks, buildChunk(carry, lastHeader))
	}
	return chunks, nil
}

func planWithRetry(ctx context.Context, chunkFn ChunkFunc, block []segment.Sentence, fileLabel string) (Plan, error) {
	blockText := joinSentences(block)
	var lastErr error
	for attempt := 0; attempt < maxSchemaRetries; attempt++ {
		plan, err := chunkFn(ctx, blockText, fileLabel)
		if err == nil {
			return plan, nil
		}
		lastErr = err
	}
	return Plan{}, lastErr
}

func joinSentences(sentences []segment.Sentence) string {
	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}

// normalizeStartLines validates and, if needed, repairs the provider's
// chunk_start_lines: non-empty, strictly increasing, first element 1 (the
// caller may prepend a missing 1). Invalid plans collapse to a single
// all-carry block ([] signals "no valid boundaries").
func normalizeStartLines(starts []int, blockLen int) []int {
	if len(starts) == 0 {
		return nil
	}
	out := append([]int{}, starts...)
	if out[0] != 1 {
		out = append([]int{1}, out...)
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] || out[i] > blockLen {
			return nil
		}
	}
	return out
}

// toRanges converts 1-based chunk_start_lines (within a block of length
// blockLen) to 0-based [start,end) ranges, with a sentinel final range
// ending at blockLen.
func toRanges(starts []int, blockLen int) [][2]int {
	ranges := make([][2]int, 0, len(starts))
	for i, s := range starts {
		end := blockLen
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		ranges = append(ranges, [2]int{s - 1, end})
	}
	return ranges
}

func buildChunk(sentences []segment.Sentence, header string) Chunk {
	min, max := 0, 0
	first := true
	var lines []string
	for _, s := range sentences {
		if s.Text != "" {
			lines = append(lines, s.Text)
		}
		if s.RangeMin == 0 && s.RangeMax == 0 {
			continue
		}
		if first {
			min, max = s.RangeMin, s.RangeMax
			first = false
			continue
		}
		if s.RangeMin < min {
			min = s.RangeMin
		}
		if s.RangeMax > max {
			max = s.RangeMax
		}
	}
	body := strings.Join(lines, "\n")
	text := fmt.Sprintf("# %s\n\n%s", header, body)
	return Chunk{Text: text, RangeMin: min, RangeMax: max}
}
