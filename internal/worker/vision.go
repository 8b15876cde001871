package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"archivist/internal/provider"
)

const (
	maxImageWidth  = 768
	maxImageHeight = 2000
	maxImageBytes  = 20 * 1024 * 1024
	minJPEGQuality = 20
)

// VisionRequest is one image to resolve to text: Image is the raw
// (undecoded) bytes, Prompt is the instruction sent alongside it, and
// Format turns the raw VisionResult into the caller's line text.
type VisionRequest struct {
	Image  []byte
	Prompt string
	Format func(provider.VisionResult) string
}

// VisionResponse is one request's outcome, in the original request order.
type VisionResponse struct {
	Text       string
	IsRejected bool
	Err        error
}

// RunVision resizes each request's image to safe bounds, base64-encodes it,
// calls p.Vision, and applies the request's formatter, across maxWorkers
// bounded goroutines. Results preserve the original request order.
func RunVision(ctx context.Context, p provider.Provider, reqs []VisionRequest, maxWorkers int) []VisionResponse {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	out := make([]VisionResponse, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			resized, err := ResizeToBounds(r.Image)
			if err != nil {
				out[i] = VisionResponse{Err: err}
				return nil
			}
			b64 := base64.StdEncoding.EncodeToString(resized)
			res, err := p.Vision(gctx, r.Prompt, b64)
			if err != nil {
				out[i] = VisionResponse{Err: err}
				return nil
			}
			text := res.Answer
			if r.Format != nil {
				text = r.Format(res)
			}
			out[i] = VisionResponse{Text: text, IsRejected: res.IsRejected}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ResizeToBounds shrinks data to fit within maxImageWidth x maxImageHeight
// and maxImageBytes, iteratively lowering JPEG quality when the dimension
// resize alone isn't enough to meet the byte budget.
func ResizeToBounds(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("worker: decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth || h > maxImageHeight {
		scale := minFloat(float64(maxImageWidth)/float64(w), float64(maxImageHeight)/float64(h))
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	for quality := 90; quality >= minJPEGQuality; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("worker: encode image: %w", err)
		}
		if buf.Len() <= maxImageBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("worker: image exceeds %d bytes even at minimum quality", maxImageBytes)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
