package provider

import (
	"context"
	"fmt"
	"net/http"

	"archivist/internal/cache"
	"archivist/internal/config"
	"archivist/internal/providerparams"
	"archivist/internal/retry"
)

// Build dispatches cfg.Backend to a concrete variant and wraps it with the
// shared cache and retry policy.
func Build(ctx context.Context, cfg config.ProviderConfig, c *cache.Cache, r *retry.Policy, httpClient *http.Client) (Provider, error) {
	params := providerparams.Params{
		ModelChunk:       cfg.ModelChunk.Model,
		ModelEmbed:       cfg.ModelEmbed.Model,
		ModelRerank:      cfg.ModelRerank.Model,
		ModelVision:      cfg.ModelVision.Model,
		ModelQuery:       cfg.ModelQuery.Model,
		QueryTemperature: cfg.ModelQuery.Temperature,
	}

	var backend Backend
	switch cfg.Backend {
	case "local":
		backend = NewLocalHTTP(cfg, httpClient)
	case "openai", "":
		backend = NewOpenAICompatible(cfg, httpClient)
	case "anthropic", "google":
		remote, err := NewRemoteAPI(ctx, cfg, cfg.APIKey, cfg.APIKey, httpClient)
		if err != nil {
			return nil, err
		}
		backend = remote
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}

	return New(backend, c, r, params), nil
}
