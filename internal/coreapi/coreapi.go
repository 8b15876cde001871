// Package coreapi is the facade a CLI or service entrypoint drives: it wires
// config, logging, the cache, the vector store, and the model provider into
// the ingest and query pipelines, and exposes the add/change/remove/search/
// query/stats operations as one object.
package coreapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"archivist/internal/cache"
	"archivist/internal/config"
	"archivist/internal/ingest"
	"archivist/internal/logging"
	"archivist/internal/progress"
	"archivist/internal/provider"
	"archivist/internal/providerparams"
	"archivist/internal/query"
	"archivist/internal/retry"
	"archivist/internal/vectorstore"
)

// API bundles the constructed pipelines. Build is the usual way to
// obtain one; Close releases the vector store's resources.
type API struct {
	Options  config.Options
	Logger   logging.Logger
	Store    vectorstore.Store
	Provider provider.Provider
	Progress *progress.Manager

	ingest *ingest.Pipeline
	query  *query.Pipeline
}

// Build constructs an API from Options: the response cache, the
// vector store (creating its collection if absent), a retry policy, and a
// cache-and-retry-wrapped provider backend.
func Build(ctx context.Context, opts config.Options) (*API, error) {
	log := logging.New(opts.LogPath, opts.LogLevel)

	c, err := cache.Build(ctx, opts.Cache, opts.InvalidateCache, log.WithPrefix("cache: "))
	if err != nil {
		return nil, fmt.Errorf("coreapi: build cache: %w", err)
	}

	store, err := vectorstore.Build(ctx, opts.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("coreapi: build vector store: %w", err)
	}

	retryCfg := opts.Retry
	r := retry.New(
		secondsToDuration(retryCfg.PredelaySeconds),
		secondsToDuration(retryCfg.DelayMinSeconds),
		secondsToDuration(retryCfg.DelayMaxSeconds),
		retryCfg.BackoffExponent,
		retryCfg.Retries,
		retry.DefaultClassifier,
		log.WithPrefix("provider: "),
	)

	prov, err := provider.Build(ctx, opts.Provider, c, r, http.DefaultClient)
	if err != nil {
		return nil, fmt.Errorf("coreapi: build provider: %w", err)
	}

	params := providerparams.Params{
		ModelChunk:       opts.Provider.ModelChunk.Model,
		ModelEmbed:       opts.Provider.ModelEmbed.Model,
		ModelRerank:      opts.Provider.ModelRerank.Model,
		ModelVision:      opts.Provider.ModelVision.Model,
		ModelQuery:       opts.Provider.ModelQuery.Model,
		QueryTemperature: opts.Provider.ModelQuery.Temperature,
	}

	prog := progress.New(350 * time.Millisecond)

	return &API{
		Options:  opts,
		Logger:   log,
		Store:    store,
		Provider: prov,
		Progress: prog,
		ingest: &ingest.Pipeline{
			Provider: prov,
			Store:    store,
			Options:  opts,
			Logger:   log.WithPrefix("ingest: "),
			Progress: prog,
		},
		query: &query.Pipeline{
			Provider: prov,
			Store:    store,
			Options:  opts,
			Logger:   log.WithPrefix("query: "),
			Cache:    c,
			Params:   params,
		},
	}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Close releases the vector store's connection.
func (a *API) Close() error {
	return a.Store.Close()
}

// Add ingests a single file.
func (a *API) Add(ctx context.Context, file ingest.File) error {
	return a.ingest.Add(ctx, file)
}

// Change re-ingests a single file, replacing its prior points.
func (a *API) Change(ctx context.Context, file ingest.File) error {
	return a.ingest.Change(ctx, file)
}

// Remove deletes a file's points by path.
func (a *API) Remove(ctx context.Context, filePath string) error {
	return a.ingest.Remove(ctx, filePath)
}

// Search runs raw nearest-neighbour retrieval (no rerank/expand/synthesis)
// for the question's embedding.
func (a *API) Search(ctx context.Context, question string, limit int) ([]vectorstore.Result, error) {
	vec, err := a.Provider.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("coreapi: embed question: %w", err)
	}
	if limit <= 0 {
		limit = a.Options.RetrieveChunksMax
	}
	return a.Store.Search(ctx, vec, limit, a.Options.RetrieveScoreMin)
}

// Query runs the full retrieve -> rerank -> expand -> synthesise -> format
// pipeline and returns the structured result.
func (a *API) Query(ctx context.Context, question string) (query.Result, error) {
	return a.query.Run(ctx, question)
}

// Stats reports how many points currently exist for filePath, or across the
// whole collection when filePath is empty.
func (a *API) Stats(ctx context.Context, filePath string) (int, error) {
	filter := vectorstore.Filter{}
	if filePath != "" {
		filter.Equals = map[string]string{"file_path": filePath}
	}
	return a.Store.Count(ctx, filter, true)
}

// AddTree walks root and adds every file found under it, logging and
// continuing past per-file failures rather than aborting the whole walk.
func (a *API) AddTree(ctx context.Context, root string) error {
	files := make(chan ingest.File, 16)
	walkErr := make(chan error, 1)
	go func() {
		walkErr <- ingest.WalkDir(ctx, root, files)
		close(files)
	}()

	var failed int
	for f := range files {
		if err := a.Add(ctx, f); err != nil {
			failed++
			a.Logger.Error("ingest failed", err, map[string]any{"file_path": f.Path})
		}
	}
	if err := <-walkErr; err != nil {
		return fmt.Errorf("coreapi: walk %s: %w", root, err)
	}
	if failed > 0 {
		return fmt.Errorf("coreapi: %d file(s) failed to ingest under %s", failed, root)
	}
	return nil
}
