package coreapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"archivist/internal/config"
)

func TestBuildWiresMemoryBackends(t *testing.T) {
	opts := config.Default()
	opts.VectorStore.Dimensions = 3

	a, err := Build(context.Background(), opts)
	require.NoError(t, err)
	defer a.Close()

	n, err := a.Stats(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
