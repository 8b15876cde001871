package decode

import (
	"context"
	"path/filepath"
	"strings"

	"archivist/internal/config"
)

// Decoder resolves a file's raw bytes to Content, or ErrUnprocessable.
type Decoder interface {
	Decode(ctx context.Context, path string, data []byte) (Content, error)
}

type decoderFunc func(ctx context.Context, path string, data []byte) (Content, error)

func (f decoderFunc) Decode(ctx context.Context, path string, data []byte) (Content, error) {
	return f(ctx, path, data)
}

// ForPath picks the Decoder appropriate for path's extension. vision
// resolves embedded/rendered images for decoders that need it; strategy and
// autoThreshold configure the PDF decoder's OCR-strategy resolution.
func ForPath(path string, vision VisionFunc, strategy config.OcrStrategy, autoThreshold int) Decoder {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".md", ".markdown":
		return decoderFunc(func(ctx context.Context, path string, data []byte) (Content, error) {
			return ASCIIMarkup{}.Decode(data)
		})
	case ".odt", ".docx":
		return decoderFunc(func(ctx context.Context, path string, data []byte) (Content, error) {
			return BinaryDocument{Vision: vision}.Decode(ctx, data)
		})
	case ".pdf":
		return PDF{Strategy: strategy, AutoThreshold: autoThreshold}
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return decoderFunc(func(ctx context.Context, path string, data []byte) (Content, error) {
			return RasterImage{Vision: vision}.Decode(ctx, data)
		})
	default:
		return decoderFunc(func(ctx context.Context, path string, data []byte) (Content, error) {
			return Plaintext{}.Decode(data)
		})
	}
}
