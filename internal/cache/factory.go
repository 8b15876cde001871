package cache

import (
	"context"
	"fmt"

	"archivist/internal/config"
	"archivist/internal/logging"
)

// Build constructs a Cache for the configured backend ("memory", "redis",
// or "s3"; empty defaults to "memory").
func Build(ctx context.Context, cfg config.CacheConfig, invalidate bool, log logging.Logger) (*Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return New(NewMemoryBackend(), invalidate, log), nil
	case "redis":
		backend, err := NewRedisBackend(cfg.RedisDSN, "archivist")
		if err != nil {
			return nil, fmt.Errorf("cache: build redis backend: %w", err)
		}
		return New(backend, invalidate, log), nil
	case "s3":
		backend, err := NewS3Backend(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("cache: build s3 backend: %w", err)
		}
		return New(backend, invalidate, log), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
