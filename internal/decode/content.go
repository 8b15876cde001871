// Package decode implements the Decoders capability: plaintext,
// ASCII-markup, binary-document, PDF, and raster-image decoders, all
// emitting a uniform Content value with an authoritative per-line reference
// array back to the source document.
package decode

import (
	"context"
	"fmt"
)

// Content is a decoded document: a flat list of lines plus exactly one of
// LinesPerLine or PagesPerLine, each the same length as Lines, giving the
// absolute source line (or page) each output line came from. A content
// without any reference array is rejected by NewContent.
type Content struct {
	Lines        []string
	LinesPerLine []int
	PagesPerLine []int
}

// NewContent validates the DocumentContent invariant before returning: the
// reference array's length must equal the line count, and exactly one of
// LinesPerLine/PagesPerLine must be set.
func NewContent(lines []string, linesPerLine, pagesPerLine []int) (Content, error) {
	hasLines := linesPerLine != nil
	hasPages := pagesPerLine != nil
	if hasLines == hasPages {
		return Content{}, fmt.Errorf("decode: exactly one of lines_per_line/pages_per_line must be set")
	}
	ref := linesPerLine
	if hasPages {
		ref = pagesPerLine
	}
	if len(ref) != len(lines) {
		return Content{}, fmt.Errorf("decode: reference array length %d does not match line count %d", len(ref), len(lines))
	}
	return Content{Lines: lines, LinesPerLine: linesPerLine, PagesPerLine: pagesPerLine}, nil
}

// References returns whichever of LinesPerLine/PagesPerLine is set.
func (c Content) References() []int {
	if c.LinesPerLine != nil {
		return c.LinesPerLine
	}
	return c.PagesPerLine
}

// VisionFunc resolves an embedded or rendered image to descriptive text for
// inclusion as a bracketed line. ok is false when the provider rejected or
// could not process the image; decoders emit "[Unprocessable Image]" in
// that case rather than failing the whole document.
type VisionFunc func(ctx context.Context, imageBytes []byte) (text string, ok bool)

// ErrUnprocessable signals a decoder could not produce any content for a
// file (corrupt container, unreadable encoding); the caller marks the file
// unprocessable and removes any prior points for it rather than failing the
// whole pipeline run.
var ErrUnprocessable = fmt.Errorf("decode: unprocessable document")
