package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores cache entries in Redis, the shared-cache choice for
// multi-process deployments where a restart or a second worker must still
// see prior results.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to dsn (a redis:// URL) and prefixes every key
// with prefix (empty is fine).
func NewRedisBackend(dsn, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (r *RedisBackend) fullKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.fullKey(key), value, 0).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.fullKey(key)).Err()
}

var _ Backend = (*RedisBackend)(nil)
