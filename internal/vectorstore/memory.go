package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store, useful for tests and small local setups
// that don't need a standalone vector database.
type Memory struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]Point)}
}

func (m *Memory) CollectionExists(ctx context.Context) (bool, error) { return true, nil }

func (m *Memory) CreateCollection(ctx context.Context, dimensions int, metric string) error {
	return nil
}

func (m *Memory) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		cp := make([]float32, len(p.Vector))
		copy(cp, p.Vector)
		p.Vector = cp
		m.points[p.ID] = p
	}
	return nil
}

func (m *Memory) DeleteBy(ctx context.Context, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if filter.Matches(metadata(p.Payload)) {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *Memory) Count(ctx context.Context, filter Filter, exact bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.points {
		if filter.Matches(metadata(p.Payload)) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Search(ctx context.Context, vector []float32, k int, minScore float64) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	qnorm := norm(vector)
	results := make([]Result, 0, len(m.points))
	for _, p := range m.points {
		score := cosine(vector, p.Vector, qnorm)
		if score < minScore {
			continue
		}
		results = append(results, Result{Point: p, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *Memory) Fetch(ctx context.Context, filter Filter, limit int) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Point
	for _, p := range m.points {
		if filter.Matches(metadata(p.Payload)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Payload.ChunkIndex < out[j].Payload.ChunkIndex })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}

var _ Store = (*Memory)(nil)
