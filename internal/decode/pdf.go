package decode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"archivist/internal/config"
)

// PDF decodes a PDF document page by page. The OCR strategy selects
// relaxed (extracted text) or strict (full-page vision render) per page;
// the rendered-page-image path for strict mode is not implemented here — no
// raster-from-PDF-page library exists in this module's dependency set, so
// strict mode degrades to relaxed text extraction. See DESIGN.md.
type PDF struct {
	Strategy      config.OcrStrategy
	AutoThreshold int
}

func (d PDF) Decode(ctx context.Context, path string, data []byte) (Content, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Content{}, fmt.Errorf("%w: open pdf: %v", ErrUnprocessable, err)
	}

	var lines []string
	var pages []int
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		d.resolveStrategy(text) // reserved for a future page-image render path
		pageLines := splitNonEmptyLines(text)

		for _, l := range pageLines {
			lines = append(lines, l)
			pages = append(pages, i)
		}
		if i < numPages {
			lines = append(lines, "")
			pages = append(pages, 0)
		}
	}

	if len(lines) == 0 {
		return Content{}, fmt.Errorf("%w: no extractable content", ErrUnprocessable)
	}
	return NewContent(lines, nil, pages)
}

func (d PDF) resolveStrategy(pageText string) config.OcrStrategy {
	switch d.Strategy {
	case config.OcrStrict, config.OcrRelaxed:
		return d.Strategy
	default: // auto
		threshold := d.AutoThreshold
		if threshold <= 0 {
			threshold = 100
		}
		if len(pageText) >= threshold {
			return config.OcrRelaxed
		}
		return config.OcrStrict
	}
}

func splitNonEmptyLines(text string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			line := text[start:i]
			if len(line) > 0 {
				out = append(out, trimCR(line))
			}
			start = i + 1
		}
	}
	return out
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

// tinyImagePixels is the per-dimension pixel size at or below which an
// embedded PDF image counts as tiny.
const tinyImagePixels = 32

// isTinyImage reports whether an embedded image is at or below the skip
// threshold on either dimension.
func isTinyImage(width, height int) bool {
	return width <= tinyImagePixels || height <= tinyImagePixels
}
