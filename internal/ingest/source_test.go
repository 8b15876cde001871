package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkDirEmitsFilesWithRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644))

	out := make(chan File, 10)
	go func() {
		require.NoError(t, WalkDir(context.Background(), dir, out))
		close(out)
	}()

	var files []File
	for f := range out {
		files = append(files, f)
	}
	require.Len(t, files, 2)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	require.Contains(t, paths, "a.txt")
	require.Contains(t, paths, filepath.Join("sub", "b.txt"))
}
