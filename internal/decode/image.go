package decode

import (
	"context"
	"fmt"
)

// RasterImage decodes a single standalone image file into one vision line.
type RasterImage struct {
	Vision VisionFunc
}

func (d RasterImage) Decode(ctx context.Context, data []byte) (Content, error) {
	if d.Vision == nil {
		return Content{}, fmt.Errorf("%w: no vision function configured", ErrUnprocessable)
	}
	text, ok := d.Vision(ctx, data)
	if !ok {
		text = "[Unprocessable Image]"
	}
	return NewContent([]string{text}, []int{1}, nil)
}
