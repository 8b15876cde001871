// Package query implements the QueryPipeline: embed -> retrieve -> knee
// cutoff -> rerank -> expand -> dedup -> synthesise -> reference repair ->
// format.
package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"archivist/internal/cache"
	"archivist/internal/config"
	"archivist/internal/knee"
	"archivist/internal/logging"
	"archivist/internal/provenance"
	"archivist/internal/provider"
	"archivist/internal/providerparams"
	"archivist/internal/vectorstore"
)

// Pipeline wires a ModelProvider and VectorStore into a single question ->
// formatted-answer call.
type Pipeline struct {
	Provider provider.Provider
	Store    vectorstore.Store
	Options  config.Options
	Logger   logging.Logger

	// Cache and Params are optional; when both are set, a rejected query
	// response is defensively popped from the cache under the same key a
	// cached call would have used, even though query results are not cached
	// by default.
	Cache  *cache.Cache
	Params providerparams.Params
}

// Reference is one context chunk surfaced to the reader, numbered by
// first-appearance order across all answers.
type Reference struct {
	Number int
	Point  vectorstore.Point
}

// Answer is one synthesised answer paired with the reference numbers it
// actually cited.
type Answer struct {
	Text           string
	ReferenceNums  []int
}

// Result is the fully formatted outcome of Run.
type Result struct {
	Question          string
	QuestionRephrased string
	Answers           []Answer
	Conclusion        string
	References        []Reference
	FollowUpQuestions []string
	IsRejected        bool
	RejectionReason   string
}

func (p *Pipeline) logger() logging.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.Nop()
}

// Run answers question against the configured vector store and provider.
func (p *Pipeline) Run(ctx context.Context, question string) (Result, error) {
	log := p.logger()

	vec, err := p.Provider.Embed(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("query: embed question: %w", err)
	}

	hits, err := p.Store.Search(ctx, vec, p.retrieveMax(), p.Options.RetrieveScoreMin)
	if err != nil {
		return Result{}, fmt.Errorf("query: retrieve: %w", err)
	}
	if len(hits) == 0 {
		return Result{Question: question}, nil
	}

	hits = p.applyKneeCutoff(hits)
	hits = p.rerank(ctx, hits, log)
	points := p.expand(ctx, hits, log)
	points = dedup(points)

	hashes := make([]string, len(points))
	for i, pt := range points {
		hashes[i] = pointHash(pt)
	}

	contextBlock := buildContext(points, hashes)
	qres, err := p.Provider.Query(ctx, contextBlock+"\n\n"+question)
	if err != nil {
		return Result{}, fmt.Errorf("query: synthesise: %w", err)
	}

	if qres.IsRejected {
		p.popCacheEntry(ctx, contextBlock+"\n\n"+question)
		return Result{Question: question, IsRejected: true, RejectionReason: qres.RejectionReason}, nil
	}

	return p.format(question, qres, points, hashes), nil
}

func (p *Pipeline) retrieveMax() int {
	if p.Options.RetrieveChunksMax > 0 {
		return p.Options.RetrieveChunksMax
	}
	return config.Default().RetrieveChunksMax
}

// applyKneeCutoff retains only points up to and including the knee index of
// the descending score curve, never fewer than RetrieveKneeMinChunks.
func (p *Pipeline) applyKneeCutoff(hits []vectorstore.Result) []vectorstore.Result {
	if !p.Options.RetrieveKneeEnable || len(hits) < 3 {
		return hits
	}
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	minChunks := p.Options.RetrieveKneeMinChunks
	if minChunks < 1 {
		minChunks = 1
	}
	idx := knee.Cutoff(scores, p.Options.RetrieveKneeSensitivity, minChunks)
	if idx < 0 {
		return hits
	}
	return hits[:idx+1]
}

// rerank asks the provider to reorder hits when there is more than one,
// falling back to the original order on rejection or an invalid permutation.
func (p *Pipeline) rerank(ctx context.Context, hits []vectorstore.Result, log logging.Logger) []vectorstore.Result {
	if len(hits) <= 1 {
		return hits
	}

	var b strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n", i, h.Point.Payload.ChunkText)
	}
	res, err := p.Provider.Rerank(ctx, b.String())
	if err != nil {
		log.Warn("rerank failed, keeping original order", map[string]any{"error": err.Error()})
		return truncate(hits, p.rerankMax())
	}
	if res.IsRejected || !isPermutation(res.RerankedIndices, len(hits)) {
		return truncate(hits, p.rerankMax())
	}

	reordered := make([]vectorstore.Result, len(hits))
	for i, idx := range res.RerankedIndices {
		reordered[i] = hits[idx]
	}
	return truncate(reordered, p.rerankMax())
}

func (p *Pipeline) rerankMax() int {
	if p.Options.RerankChunksMax > 0 {
		return p.Options.RerankChunksMax
	}
	return config.Default().RerankChunksMax
}

func truncate(hits []vectorstore.Result, max int) []vectorstore.Result {
	if max > 0 && len(hits) > max {
		return hits[:max]
	}
	return hits
}

func isPermutation(indices []int, n int) bool {
	if len(indices) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range indices {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// expand fetches each surviving point's neighbours within expand_chunks_radius
// in the same file, bounded to [0, chunks_total). Missing neighbours are
// logged but non-fatal.
func (p *Pipeline) expand(ctx context.Context, hits []vectorstore.Result, log logging.Logger) []vectorstore.Point {
	radius := p.Options.ExpandChunksRadius
	var out []vectorstore.Point
	for _, h := range hits {
		out = append(out, h.Point)
		if radius <= 0 {
			continue
		}
		payload := h.Point.Payload
		lo := payload.ChunkIndex - radius
		if lo < 0 {
			lo = 0
		}
		hi := payload.ChunkIndex + radius
		if hi > payload.ChunksTotal-1 {
			hi = payload.ChunksTotal - 1
		}
		wanted := make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			if i == payload.ChunkIndex {
				continue
			}
			wanted = append(wanted, fmt.Sprintf("%d", i))
		}
		if len(wanted) == 0 {
			continue
		}
		neighbours, err := p.Store.Fetch(ctx, vectorstore.Filter{
			Equals: map[string]string{"file_path": payload.FilePath},
			AnyOf:  map[string][]string{"chunk_index": wanted},
		}, 0)
		if err != nil {
			log.Warn("expand: fetch neighbours failed", map[string]any{"file_path": payload.FilePath, "error": err.Error()})
			continue
		}
		out = append(out, neighbours...)
	}
	return out
}

// dedup keeps the first occurrence per (file_path, chunk_index), preserving
// order.
func dedup(points []vectorstore.Point) []vectorstore.Point {
	seen := make(map[string]bool)
	var out []vectorstore.Point
	for _, pt := range points {
		key := fmt.Sprintf("%s\x00%d", pt.Payload.FilePath, pt.Payload.ChunkIndex)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pt)
	}
	return out
}

// pointHash computes a point's provenance hash from its own payload fields,
// using whichever of line_range/page_range is set.
func pointHash(pt vectorstore.Point) string {
	lineStr, pageStr := "", ""
	if pt.Payload.LineRange != nil {
		lineStr = formatRange(pt.Payload.LineRange)
	}
	if pt.Payload.PageRange != nil {
		pageStr = formatRange(pt.Payload.PageRange)
	}
	return provenance.Hash(pt.Payload.ChunkIndex, pt.Payload.ChunksTotal, pt.Payload.FilePath, pt.Payload.FileMtime, lineStr, pageStr)
}

func formatRange(rng []int) string {
	switch len(rng) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("[%d]", rng[0])
	default:
		return fmt.Sprintf("[%d, %d]", rng[0], rng[1])
	}
}

// buildContext concatenates "<<< <hash> >>>\n\n<chunk_text>\n" blocks
// separated by blank lines.
func buildContext(points []vectorstore.Point, hashes []string) string {
	blocks := make([]string, len(points))
	for i, pt := range points {
		blocks[i] = fmt.Sprintf("<<< %s >>>\n\n%s\n", hashes[i], pt.Payload.ChunkText)
	}
	return strings.Join(blocks, "\n")
}

func (p *Pipeline) popCacheEntry(ctx context.Context, prompt string) {
	if p.Cache == nil {
		return
	}
	key := cache.BuildKey("query", map[string]any{"prompt": prompt}, p.Params.StaticCacheKey())
	_, _, _ = p.Cache.Pop(ctx, key)
}

var refTokenPattern = regexp.MustCompile(`(?i)<<<\s*([0-9a-f]{16})\s*>>>`)

// format resolves each answer's chunk_ref_list tokens against the retrieval
// set's provenance hashes (repairing near-miss tokens when enabled),
// assigns reference numbers by first-appearance order shared across
// answers, and renders the final sectioned text.
func (p *Pipeline) format(question string, qres provider.QueryResult, points []vectorstore.Point, hashes []string) Result {
	hashToPoint := make(map[string]vectorstore.Point, len(hashes))
	for i, h := range hashes {
		hashToPoint[h] = points[i]
	}

	var refOrder []string
	refNumbers := make(map[string]int)
	assign := func(hash string) int {
		if n, ok := refNumbers[hash]; ok {
			return n
		}
		refOrder = append(refOrder, hash)
		n := len(refOrder)
		refNumbers[hash] = n
		return n
	}

	answers := make([]Answer, 0, len(qres.AnswerList))
	for _, a := range qres.AnswerList {
		var nums []int
		for _, raw := range a.ChunkRefList {
			token := extractToken(raw)
			if token == "" {
				continue
			}
			hash, ok := resolveToken(token, hashes, p.Options.HashRepairEnable, p.Options.HashRepairMaxDist)
			if !ok {
				continue
			}
			nums = append(nums, assign(hash))
		}
		sort.Ints(nums)
		answers = append(answers, Answer{Text: a.Answer, ReferenceNums: nums})
	}

	references := make([]Reference, len(refOrder))
	for i, hash := range refOrder {
		references[i] = Reference{Number: i + 1, Point: hashToPoint[hash]}
	}

	return Result{
		Question:          question,
		QuestionRephrased: qres.QuestionRephrased,
		Answers:            answers,
		Conclusion:         qres.AnswerConclusion,
		References:         references,
		FollowUpQuestions:  qres.FollowUpQuestionsList,
	}
}

func extractToken(raw string) string {
	m := refTokenPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func resolveToken(token string, known []string, repairEnable bool, maxDist int) (string, bool) {
	for _, h := range known {
		if h == token {
			return h, true
		}
	}
	if !repairEnable {
		return "", false
	}
	if maxDist <= 0 {
		maxDist = 2
	}
	return provenance.Repair(token, known, maxDist)
}

// Render produces the human-readable "Question / Answers / Conclusion /
// References / Follow-Up Questions" text for a non-rejected Result.
func Render(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Question\n\n%s\n\n", r.Question)

	b.WriteString("# Answers\n\n")
	for _, a := range r.Answers {
		b.WriteString(a.Text)
		if len(a.ReferenceNums) > 0 {
			b.WriteString(" ")
			for i, n := range a.ReferenceNums {
				if i > 0 {
					b.WriteString(" ")
				}
				fmt.Fprintf(&b, "**[%d]**", n)
			}
		}
		b.WriteString("\n\n")
	}

	if r.Conclusion != "" {
		fmt.Fprintf(&b, "# Conclusion\n\n%s\n\n", r.Conclusion)
	}

	if len(r.References) > 0 {
		b.WriteString("# References\n\n")
		for _, ref := range r.References {
			fmt.Fprintf(&b, "[%d] %s (chunk %d)\n", ref.Number, ref.Point.Payload.FilePath, ref.Point.Payload.ChunkIndex)
		}
		b.WriteString("\n")
	}

	if len(r.FollowUpQuestions) > 0 {
		b.WriteString("# Follow-Up Questions\n\n")
		for _, q := range r.FollowUpQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	return b.String()
}
