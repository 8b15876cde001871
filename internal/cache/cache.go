// Package cache implements the content-addressed response cache shared by
// every cacheable ModelProvider operation. A cache key folds together the
// operation name, the call's keyword arguments, and the provider's static
// identity, so a model swap or a parameter change naturally misses rather
// than returning a stale answer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"archivist/internal/logging"
)

// Backend stores opaque byte payloads under opaque keys. Implementations
// must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Cache wraps a Backend with the invalidate-on-read policy: when Invalidate
// is set, Get always reports a miss (forcing the caller to recompute and
// Put a fresh value) while Put keeps writing normally, so a single
// invalidating run repopulates the cache for subsequent runs instead of
// leaving it empty.
type Cache struct {
	backend    Backend
	invalidate bool
	log        logging.Logger
}

// New builds a Cache over backend. invalidate forces every Get to miss.
func New(backend Backend, invalidate bool, log logging.Logger) *Cache {
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{backend: backend, invalidate: invalidate, log: log}
}

// Contains reports whether key is present, honouring the invalidate policy.
func (c *Cache) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// Get returns the cached value for key. It always misses when the cache was
// constructed with invalidate=true.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.invalidate {
		return nil, false, nil
	}
	return c.backend.Get(ctx, key)
}

// Put stores value under key regardless of the invalidate policy.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	return c.backend.Put(ctx, key, value)
}

// Pop removes and returns the value for key in one call, used when a
// query result is rejected and must not linger as a hit for a
// retried call with the same key. It uses explicit get-then-delete rather
// than relying on any backend's eviction order.
func (c *Cache) Pop(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	if err := c.backend.Delete(ctx, key); err != nil {
		c.log.Warn("cache: pop failed to delete", map[string]any{"error": err.Error()})
		return value, ok, err
	}
	return value, ok, nil
}

// BuildKey returns the SHA-256 hex digest of "<op>:<sorted-json(kwargs)>:<staticKey>".
// encoding/json sorts map[string]any keys alphabetically when marshaling, so
// this is a deterministic stand-in for a sort_keys=True dump.
func BuildKey(op string, kwargs map[string]any, staticKey string) string {
	body, _ := json.Marshal(kwargs)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", op, body, staticKey)))
	return hex.EncodeToString(sum[:])
}
