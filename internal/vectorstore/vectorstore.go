// Package vectorstore implements the VectorStore capability: point
// lifecycle (upsert/delete/count/search/fetch) against a pluggable backend.
package vectorstore

import (
	"context"
	"strconv"
)

// Payload is the wire-observable, bit-exact point payload schema. Extra
// fields are forbidden; PageRange and LineRange are mutually exclusive.
type Payload struct {
	FilePath    string `json:"file_path"`
	FileMtime   int64  `json:"file_mtime"`
	ChunkIndex  int    `json:"chunk_index"`
	ChunksTotal int    `json:"chunks_total"`
	ChunkText   string `json:"chunk_text"`

	Version   string `json:"version,omitempty"`
	PageRange []int  `json:"page_range,omitempty"`
	LineRange []int  `json:"line_range,omitempty"`
}

// Point is a single vector-store record.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Filter selects points by payload-field equality or membership, matching
// the capability's {equals, any_of} filter expression.
type Filter struct {
	Equals map[string]string
	AnyOf  map[string][]string
}

// Matches reports whether metadata (a flattened string view of a Payload)
// satisfies f. An empty Filter matches everything.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f.Equals {
		if metadata[k] != v {
			return false
		}
	}
	for k, vs := range f.AnyOf {
		found := false
		for _, v := range vs {
			if metadata[k] == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store is the VectorStore capability.
type Store interface {
	CollectionExists(ctx context.Context) (bool, error)
	CreateCollection(ctx context.Context, dimensions int, metric string) error

	// Upsert stores points, batching internally as the backend requires.
	Upsert(ctx context.Context, points []Point) error

	// DeleteBy removes every point whose payload matches filter.
	DeleteBy(ctx context.Context, filter Filter) error

	// Count returns the number of points matching filter. When exact is
	// false a backend may return a fast approximate count.
	Count(ctx context.Context, filter Filter, exact bool) (int, error)

	// Search returns up to k points with score >= minScore, descending by
	// score.
	Search(ctx context.Context, vector []float32, k int, minScore float64) ([]Result, error)

	// Fetch returns up to limit points (with payloads) matching filter.
	// limit <= 0 means unbounded.
	Fetch(ctx context.Context, filter Filter, limit int) ([]Point, error)

	Close() error
}

// Result is a single similarity-search hit.
type Result struct {
	Point Point
	Score float64
}

// metadata flattens a Payload into the string map backends index on.
func metadata(p Payload) map[string]string {
	return map[string]string{
		"file_path":    p.FilePath,
		"chunk_index":  strconv.Itoa(p.ChunkIndex),
		"chunks_total": strconv.Itoa(p.ChunksTotal),
	}
}
