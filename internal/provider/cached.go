package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"archivist/internal/cache"
	"archivist/internal/providerparams"
	"archivist/internal/retry"
)

// Backend performs the actual provider calls with no caching or retry of its
// own; Cached wraps it with both. query is deliberately absent from Backend's
// cached surface since QueryResult is never cached, but backends still
// implement it via the embedded Provider interface.
type Backend interface {
	Provider
}

// Cached wraps a Backend with a content-addressed response cache and a
// bounded retry policy. embed/chunk/rerank/vision are cached; query always
// calls through.
type Cached struct {
	backend   Backend
	cache     *cache.Cache
	retry     *retry.Policy
	staticKey string
}

// New wraps backend with the given cache and retry policy. staticKey is the
// frozen model-identity digest (providerparams.Params.StaticCacheKey)
// included in every cache key so a config change invalidates stale entries.
func New(backend Backend, c *cache.Cache, r *retry.Policy, params providerparams.Params) *Cached {
	return &Cached{backend: backend, cache: c, retry: r, staticKey: params.StaticCacheKey()}
}

func (c *Cached) cachedCall(ctx context.Context, op string, kwargs map[string]any, call func(ctx context.Context) (any, error), out any) error {
	key := cache.BuildKey(op, kwargs, c.staticKey)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		return err
	} else if ok {
		return json.Unmarshal(raw, out)
	}

	var result any
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		r, callErr := call(ctx)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("provider: marshal %s result: %w", op, err)
	}
	if err := c.cache.Put(ctx, key, raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := c.cachedCall(ctx, "embed", map[string]any{"text": text}, func(ctx context.Context) (any, error) {
		return c.backend.Embed(ctx, text)
	}, &vec)
	return vec, err
}

func (c *Cached) Chunk(ctx context.Context, prompt string) (ChunkPlan, error) {
	var plan ChunkPlan
	err := c.cachedCall(ctx, "chunk", map[string]any{"prompt": prompt}, func(ctx context.Context) (any, error) {
		return c.backend.Chunk(ctx, prompt)
	}, &plan)
	return plan, err
}

func (c *Cached) Rerank(ctx context.Context, prompt string) (RerankResult, error) {
	var res RerankResult
	err := c.cachedCall(ctx, "rerank", map[string]any{"prompt": prompt}, func(ctx context.Context) (any, error) {
		return c.backend.Rerank(ctx, prompt)
	}, &res)
	return res, err
}

// Query is never cached; it still runs through the retry policy.
func (c *Cached) Query(ctx context.Context, prompt string) (QueryResult, error) {
	var res QueryResult
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		r, err := c.backend.Query(ctx, prompt)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

func (c *Cached) Vision(ctx context.Context, prompt string, imageB64 string) (VisionResult, error) {
	var res VisionResult
	err := c.cachedCall(ctx, "vision", map[string]any{"prompt": prompt, "image_b64": imageB64}, func(ctx context.Context) (any, error) {
		return c.backend.Vision(ctx, prompt, imageB64)
	}, &res)
	return res, err
}

var _ Provider = (*Cached)(nil)
