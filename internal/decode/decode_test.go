package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContentRejectsBothReferenceArrays(t *testing.T) {
	_, err := NewContent([]string{"a"}, []int{1}, []int{1})
	require.Error(t, err)
}

func TestNewContentRejectsNeitherReferenceArray(t *testing.T) {
	_, err := NewContent([]string{"a"}, nil, nil)
	require.Error(t, err)
}

func TestNewContentRejectsLengthMismatch(t *testing.T) {
	_, err := NewContent([]string{"a", "b"}, []int{1}, nil)
	require.Error(t, err)
}

func TestNewContentAccepts(t *testing.T) {
	c, err := NewContent([]string{"a", "b"}, []int{1, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, c.References())
}

func TestPlaintextDecodeLinesPerLine(t *testing.T) {
	c, err := Plaintext{}.Decode([]byte("one\ntwo\nthree"))
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, c.Lines)
	require.Equal(t, []int{1, 2, 3}, c.LinesPerLine)
}

func TestASCIIMarkupDecodeFallsBackToMarkdownConversion(t *testing.T) {
	c, err := ASCIIMarkup{}.Decode([]byte("# Title\n\nBody text."))
	require.NoError(t, err)
	require.NotEmpty(t, c.Lines)
	require.Equal(t, len(c.Lines), len(c.LinesPerLine))
}

func TestRasterImageDecodeUnprocessableWithoutVision(t *testing.T) {
	_, err := RasterImage{}.Decode(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	require.ErrorIs(t, err, ErrUnprocessable)
}

func TestRasterImageDecodeUsesVisionText(t *testing.T) {
	img := RasterImage{Vision: func(ctx context.Context, data []byte) (string, bool) {
		return "a cat", true
	}}
	c, err := img.Decode(context.Background(), []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, []string{"a cat"}, c.Lines)
	require.Equal(t, []int{1}, c.LinesPerLine)
}

func TestPDFDecodeUnprocessableOnGarbage(t *testing.T) {
	_, err := PDF{}.Decode(context.Background(), "bad.pdf", []byte("not a pdf"))
	require.ErrorIs(t, err, ErrUnprocessable)
}
