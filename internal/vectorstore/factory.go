package vectorstore

import (
	"context"
	"fmt"

	"archivist/internal/config"
)

// Build constructs a Store for the configured backend ("qdrant" or
// "memory"; empty defaults to "memory"), creating the collection if it
// doesn't exist yet.
func Build(ctx context.Context, cfg config.VectorStoreConfig) (Store, error) {
	var store Store
	switch cfg.Backend {
	case "", "memory":
		store = NewMemory()
	case "qdrant":
		q, err := NewQdrant(cfg.DSN, cfg.Collection)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: build qdrant store: %w", err)
		}
		store = q
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", cfg.Backend)
	}

	exists, err := store.CollectionExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: check collection exists: %w", err)
	}
	if !exists {
		if err := store.CreateCollection(ctx, cfg.Dimensions, cfg.Metric); err != nil {
			return nil, fmt.Errorf("vectorstore: create collection: %w", err)
		}
	}
	return store, nil
}
