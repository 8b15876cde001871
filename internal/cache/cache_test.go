package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheGetPutRoundTrip(t *testing.T) {
	c := New(NewMemoryBackend(), false, nil)
	ctx := context.Background()
	key := BuildKey("embed", map[string]any{"text": "hello"}, "static")

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Put(ctx, key, []byte("result")))
	v, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("result"), v)
}

func TestCacheInvalidateAlwaysMisses(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Put(ctx, "k", []byte("stale")))

	c := New(backend, true, nil)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []byte("fresh")))
	v, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("fresh"), v)
}

func TestCachePopRemovesEntry(t *testing.T) {
	c := New(NewMemoryBackend(), false, nil)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", []byte("v")))

	v, ok, err := c.Pop(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuildKeyDeterministicAndOrderIndependent(t *testing.T) {
	a := BuildKey("chunk", map[string]any{"a": 1, "b": 2}, "static")
	b := BuildKey("chunk", map[string]any{"b": 2, "a": 1}, "static")
	require.Equal(t, a, b)

	diffOp := BuildKey("rerank", map[string]any{"a": 1, "b": 2}, "static")
	require.NotEqual(t, a, diffOp)
}
