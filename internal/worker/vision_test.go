package worker

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeSolidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeToBoundsShrinksOversizedImage(t *testing.T) {
	data := encodeSolidPNG(t, 1600, 2400)
	out, err := ResizeToBounds(data)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := decoded.Bounds()
	require.LessOrEqual(t, b.Dx(), maxImageWidth)
	require.LessOrEqual(t, b.Dy(), maxImageHeight)
}

func TestResizeToBoundsLeavesSmallImageDimensionsAlone(t *testing.T) {
	data := encodeSolidPNG(t, 10, 10)
	out, err := ResizeToBounds(data)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := decoded.Bounds()
	require.Equal(t, 10, b.Dx())
	require.Equal(t, 10, b.Dy())
}
