package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// originalIDField stores the caller-supplied point ID when it isn't itself
// a UUID, since Qdrant only accepts UUIDs or positive integers as point IDs.
const originalIDField = "_original_id"

// batchSize bounds how many points a single Upsert RPC carries.
const batchSize = 256

// Qdrant implements Store against a Qdrant collection over gRPC.
type Qdrant struct {
	client     *qdrant.Client
	collection string
}

// NewQdrant connects to dsn (e.g. "http://localhost:6334?api_key=...") and
// targets collection. It does not create the collection; call
// CreateCollection or rely on the caller checking CollectionExists first.
func NewQdrant(dsn, collection string) (*Qdrant, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorstore: collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid qdrant port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create qdrant client: %w", err)
	}
	return &Qdrant{client: client, collection: collection}, nil
}

func (q *Qdrant) CollectionExists(ctx context.Context) (bool, error) {
	return q.client.CollectionExists(ctx, q.collection)
}

func (q *Qdrant) CreateCollection(ctx context.Context, dimensions int, metric string) error {
	if dimensions <= 0 {
		return fmt.Errorf("vectorstore: dimensions must be > 0")
	}
	var distance qdrant.Distance
	switch strings.ToLower(strings.TrimSpace(metric)) {
	case "euclid", "euclidean", "l2":
		distance = qdrant.Distance_Euclid
	case "dot", "ip":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: distance,
		}),
	})
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func payloadMap(p Payload) map[string]any {
	m := map[string]any{
		"file_path":    p.FilePath,
		"file_mtime":   p.FileMtime,
		"chunk_index":  p.ChunkIndex,
		"chunks_total": p.ChunksTotal,
		"chunk_text":   p.ChunkText,
	}
	if p.Version != "" {
		m["version"] = p.Version
	}
	if len(p.PageRange) > 0 {
		m["page_range"] = intsToAny(p.PageRange)
	}
	if len(p.LineRange) > 0 {
		m["line_range"] = intsToAny(p.LineRange)
	}
	return m
}

func intsToAny(xs []int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			uuidStr := pointUUID(p.ID)
			m := payloadMap(p.Payload)
			if uuidStr != p.ID {
				m[originalIDField] = p.ID
			}
			vec := make([]float32, len(p.Vector))
			copy(vec, p.Vector)
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuidStr),
				Vectors: qdrant.NewVectorsDense(vec),
				Payload: qdrant.NewValueMap(m),
			})
		}
		if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Points:         batch,
		}); err != nil {
			return fmt.Errorf("vectorstore: qdrant upsert: %w", err)
		}
	}
	return nil
}

func buildFilter(f Filter) *qdrant.Filter {
	if len(f.Equals) == 0 && len(f.AnyOf) == 0 {
		return nil
	}
	var must []*qdrant.Condition
	for k, v := range f.Equals {
		must = append(must, qdrant.NewMatch(k, v))
	}
	var should []*qdrant.Condition
	for k, vs := range f.AnyOf {
		for _, v := range vs {
			should = append(should, qdrant.NewMatch(k, v))
		}
	}
	return &qdrant.Filter{Must: must, Should: should}
}

func (q *Qdrant) DeleteBy(ctx context.Context, filter Filter) error {
	qf := buildFilter(filter)
	if qf == nil {
		return fmt.Errorf("vectorstore: DeleteBy requires a non-empty filter")
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: qdrant delete: %w", err)
	}
	return nil
}

func (q *Qdrant) Count(ctx context.Context, filter Filter, exact bool) (int, error) {
	result, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         buildFilter(filter),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("vectorstore: qdrant count: %w", err)
	}
	return int(result), nil
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, k int, minScore float64) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(k)
	scoreThreshold := float32(minScore)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		ScoreThreshold: &scoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant query: %w", err)
	}
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Point: Point{ID: resolveID(hit.Id, hit.Payload), Payload: payloadFromMap(hit.Payload)},
			Score: float64(hit.Score),
		})
	}
	return results, nil
}

func (q *Qdrant) Fetch(ctx context.Context, filter Filter, limit int) ([]Point, error) {
	qf := buildFilter(filter)
	var lim *uint32
	if limit > 0 {
		l := uint32(limit)
		lim = &l
	}
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collection,
		Filter:         qf,
		Limit:          lim,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant scroll: %w", err)
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{
			ID:      resolveID(p.Id, p.Payload),
			Vector:  vectorFrom(p.Vectors),
			Payload: payloadFromMap(p.Payload),
		})
	}
	return out, nil
}

func resolveID(id *qdrant.PointId, payload map[string]*qdrant.Value) string {
	if payload != nil {
		if v, ok := payload[originalIDField]; ok {
			if s := v.GetStringValue(); s != "" {
				return s
			}
		}
	}
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return id.String()
}

func vectorFrom(v *qdrant.VectorsOutput) []float32 {
	if v == nil {
		return nil
	}
	dense := v.GetVector().GetData()
	out := make([]float32, len(dense))
	copy(out, dense)
	return out
}

func payloadFromMap(m map[string]*qdrant.Value) Payload {
	var p Payload
	if m == nil {
		return p
	}
	if v, ok := m["file_path"]; ok {
		p.FilePath = v.GetStringValue()
	}
	if v, ok := m["file_mtime"]; ok {
		p.FileMtime = v.GetIntegerValue()
	}
	if v, ok := m["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := m["chunks_total"]; ok {
		p.ChunksTotal = int(v.GetIntegerValue())
	}
	if v, ok := m["chunk_text"]; ok {
		p.ChunkText = v.GetStringValue()
	}
	if v, ok := m["version"]; ok {
		p.Version = v.GetStringValue()
	}
	if v, ok := m["page_range"]; ok {
		p.PageRange = intsFromList(v.GetListValue())
	}
	if v, ok := m["line_range"]; ok {
		p.LineRange = intsFromList(v.GetListValue())
	}
	return p
}

func intsFromList(lv *qdrant.ListValue) []int {
	if lv == nil {
		return nil
	}
	out := make([]int, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		out = append(out, int(v.GetIntegerValue()))
	}
	return out
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

var _ Store = (*Qdrant)(nil)
