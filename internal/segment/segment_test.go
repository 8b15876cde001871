package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentSingleParagraph(t *testing.T) {
	lines := []string{"This is one. This is two.", "Still line two continues."}
	refs := []int{1, 2}
	sents := Segment(lines, refs)
	require.NotEmpty(t, sents)
	for _, s := range sents {
		if s.Text == "" {
			continue
		}
		require.GreaterOrEqual(t, s.RangeMin, 1)
		require.LessOrEqual(t, s.RangeMax, 2)
	}
}

func TestSegmentParagraphSeparator(t *testing.T) {
	lines := []string{"First paragraph.", "", "Second paragraph."}
	refs := []int{1, 0, 3}
	sents := Segment(lines, refs)

	foundSeparator := false
	for _, s := range sents {
		if s.Text == "" {
			foundSeparator = true
			require.Equal(t, 0, s.RangeMin)
			require.Equal(t, 0, s.RangeMax)
		}
	}
	require.True(t, foundSeparator)
}

func TestSegmentNoReferencesYieldsZeroRange(t *testing.T) {
	lines := []string{"Some text here."}
	refs := []int{0}
	sents := Segment(lines, refs)
	require.Len(t, sents, 1)
	require.Equal(t, 0, sents[0].RangeMin)
	require.Equal(t, 0, sents[0].RangeMax)
}
