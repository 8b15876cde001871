package ingest

import (
	"context"
	"os"
	"path/filepath"
)

// WalkDir lists every regular file under root (relative to root) and sends
// a File for each over out, reading the whole file into memory and using
// its on-disk modification time. Unlike a plain-text reader, nothing here
// pre-filters by content: the decode package tells binary formats apart by
// extension, so every file under root is a candidate.
func WalkDir(ctx context.Context, root string, out chan<- File) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		out <- File{Path: rel, Data: data, Mtime: info.ModTime().Unix()}
		return nil
	})
}
