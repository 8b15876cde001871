// Package ingest implements the IngestionPipeline: decode -> segment ->
// chunk -> embed -> point construction -> upsert, plus the change/remove
// lifecycle operations built on top of it.
package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"archivist/internal/chunk"
	"archivist/internal/config"
	"archivist/internal/decode"
	"archivist/internal/logging"
	"archivist/internal/progress"
	"archivist/internal/provider"
	"archivist/internal/segment"
	"archivist/internal/vectorstore"
	"archivist/internal/worker"
)

// File is a single source file to ingest: its logical path (the payload's
// file_path and the identity used by change/remove), raw bytes, and
// modification time (unix seconds).
type File struct {
	Path  string
	Data  []byte
	Mtime int64
}

// Pipeline wires a ModelProvider and VectorStore into the add/change/remove
// lifecycle. Zero-value Options fields fall back to config.Default().
type Pipeline struct {
	Provider provider.Provider
	Store    vectorstore.Store
	Options  config.Options
	Logger   logging.Logger
	Progress *progress.Manager
}

func (p *Pipeline) logger() logging.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.Nop()
}

// Add decodes, segments, chunks, embeds, and upserts points for file. A
// decoder that reports the file unprocessable clears any points it
// previously had instead of failing the whole run.
func (p *Pipeline) Add(ctx context.Context, file File) error {
	log := p.logger().With(map[string]any{"file_path": file.Path})

	content, err := p.decode(ctx, file)
	if errors.Is(err, decode.ErrUnprocessable) {
		log.Warn("file unprocessable, clearing prior points", nil)
		return p.Store.DeleteBy(ctx, vectorstore.Filter{Equals: map[string]string{"file_path": file.Path}})
	}
	if err != nil {
		return fmt.Errorf("ingest: decode %s: %w", file.Path, err)
	}

	sentences := segment.Segment(content.Lines, content.References())

	chunkFn := p.chunkFunc()
	chunks, err := chunk.Chunk(ctx, sentences, p.blockSize(), chunkFn, file.Path)
	if err != nil {
		return fmt.Errorf("ingest: chunk %s: %w", file.Path, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	results := worker.EmbedChunks(ctx, p.Provider, chunks, p.maxWorkers())

	isPageBased := content.PagesPerLine != nil
	points := make([]vectorstore.Point, 0, len(chunks))
	for i, c := range chunks {
		if results[i].Err != nil {
			return fmt.Errorf("ingest: embed %s chunk %d: %w", file.Path, i, results[i].Err)
		}
		if results[i].Vector == nil {
			log.Warn("dropping chunk that exceeded the embedding model's context window", map[string]any{"chunk_index": i})
			continue
		}
		points = append(points, buildPoint(file, i, len(chunks), c, results[i].Vector, isPageBased))
	}
	if len(points) == 0 {
		return nil
	}
	if err := p.Store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("ingest: upsert %s: %w", file.Path, err)
	}
	log.Info("ingested file", map[string]any{"chunks": len(points)})
	return nil
}

// Change removes file's existing points, then re-adds it.
func (p *Pipeline) Change(ctx context.Context, file File) error {
	if err := p.Store.DeleteBy(ctx, vectorstore.Filter{Equals: map[string]string{"file_path": file.Path}}); err != nil {
		return fmt.Errorf("ingest: delete prior points for %s: %w", file.Path, err)
	}
	return p.Add(ctx, file)
}

// Remove deletes filePath's points, skipping the delete call entirely when
// it already has none.
func (p *Pipeline) Remove(ctx context.Context, filePath string) error {
	filter := vectorstore.Filter{Equals: map[string]string{"file_path": filePath}}
	n, err := p.Store.Count(ctx, filter, true)
	if err != nil {
		return fmt.Errorf("ingest: count %s: %w", filePath, err)
	}
	if n == 0 {
		return nil
	}
	return p.Store.DeleteBy(ctx, filter)
}

func (p *Pipeline) decode(ctx context.Context, file File) (decode.Content, error) {
	strategy := p.Options.OcrStrategy
	if strategy == "" {
		strategy = config.OcrAuto
	}
	threshold := p.Options.OcrAutoThreshold
	if threshold == 0 {
		threshold = config.Default().OcrAutoThreshold
	}
	d := decode.ForPath(file.Path, p.visionFunc(), strategy, threshold)
	return d.Decode(ctx, file.Path, file.Data)
}

// visionFunc adapts the ModelProvider's vision operation to decode.VisionFunc,
// resizing to the shared safe bounds before encoding, matching the
// VisionWorker's own preprocessing.
func (p *Pipeline) visionFunc() decode.VisionFunc {
	if !p.Options.VisionEnabled() {
		return nil
	}
	return func(ctx context.Context, imageBytes []byte) (string, bool) {
		resized, err := worker.ResizeToBounds(imageBytes)
		if err != nil {
			return "", false
		}
		b64 := base64.StdEncoding.EncodeToString(resized)
		res, err := p.Provider.Vision(ctx, "Describe this image.", b64)
		if err != nil || res.IsRejected {
			return "", false
		}
		return res.Answer, true
	}
}

// chunkFunc adapts the ModelProvider's chunk operation to chunk.ChunkFunc.
func (p *Pipeline) chunkFunc() chunk.ChunkFunc {
	return func(ctx context.Context, blockText string, fileLabel string) (chunk.Plan, error) {
		prompt := fmt.Sprintf("file: %s\n\n%s", fileLabel, blockText)
		plan, err := p.Provider.Chunk(ctx, prompt)
		if err != nil {
			return chunk.Plan{}, err
		}
		return chunk.Plan{ChunkStartLines: plan.ChunkStartLines, Headers: plan.Headers}, nil
	}
}

func (p *Pipeline) blockSize() int {
	if p.Options.ChunkLinesBlock > 0 {
		return p.Options.ChunkLinesBlock
	}
	return config.Default().ChunkLinesBlock
}

func (p *Pipeline) maxWorkers() int {
	if p.Options.MaxWorkers > 0 {
		return p.Options.MaxWorkers
	}
	return config.Default().MaxWorkers
}

func buildPoint(file File, chunkIndex, chunksTotal int, c chunk.Chunk, vector []float32, isPageBased bool) vectorstore.Point {
	rng := collapseRange(c.RangeMin, c.RangeMax)

	payload := vectorstore.Payload{
		FilePath:    file.Path,
		FileMtime:   file.Mtime,
		ChunkIndex:  chunkIndex,
		ChunksTotal: chunksTotal,
		ChunkText:   c.Text,
	}
	if isPageBased {
		payload.PageRange = rng
	} else {
		payload.LineRange = rng
	}

	return vectorstore.Point{ID: uuid.New().String(), Vector: vector, Payload: payload}
}

// collapseRange implements the point-construction range rule: differing
// endpoints store as [min,max], equal endpoints collapse to [value], and an
// empty (0,0) range omits the field entirely (nil).
func collapseRange(min, max int) []int {
	if min == 0 && max == 0 {
		return nil
	}
	if min == max {
		return []int{min}
	}
	return []int{min, max}
}
