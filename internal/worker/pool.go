// Package worker implements the Embedder and VisionWorker capabilities:
// bounded parallel execution over a provider, with order-preserving
// results and per-item failure isolation.
package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"archivist/internal/chunk"
	"archivist/internal/provider"
)

// EmbedResult is one chunk's embedding outcome. A nil Vector with a nil Err
// means the chunk overran the model's context window (MaxTokensExceeded)
// and should be dropped from upsert with a warning, not treated as a
// pipeline failure.
type EmbedResult struct {
	Vector []float32
	Err    error
}

// EmbedChunks maps each chunk to provider.Embed(chunk.Text) across maxWorkers
// bounded goroutines, returning results in the same order as chunks. Each
// worker iteration calls p.Embed independently, matching "each task owns
// its provider instance" when p is already a per-caller instance; callers
// sharing one Cached provider rely on its own internal concurrency safety.
func EmbedChunks(ctx context.Context, p provider.Provider, chunks []chunk.Chunk, maxWorkers int) []EmbedResult {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	results := make([]EmbedResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			vec, err := p.Embed(gctx, c.Text)
			switch {
			case errors.Is(err, provider.ErrMaxTokensExceeded):
				results[i] = EmbedResult{Vector: nil, Err: nil}
			case err != nil:
				results[i] = EmbedResult{Vector: nil, Err: err}
			default:
				results[i] = EmbedResult{Vector: vec}
			}
			return nil
		})
	}
	_ = g.Wait() // per-item errors are captured in results, not propagated
	return results
}
