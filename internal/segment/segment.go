// Package segment implements paragraph-aware sentence segmentation that
// preserves each sentence's origin reference range (line or page numbers)
// from the source document.
package segment

import (
	"regexp"
	"sort"
	"strings"
)

// Sentence is a segmented unit of text with its aggregated origin range.
// RangeMin/RangeMax are both 0 when the sentence has no reference (e.g. a
// paragraph separator, or source lines that carried no reference array).
type Sentence struct {
	Text     string
	RangeMin int
	RangeMax int
}

var sentenceBoundary = regexp.MustCompile(`(?s)([.!?]["')\]]?)\s+(?:[A-Z0-9"'(\[]|$)`)

type block struct {
	lines []string
	refs  []int
}

// Segment splits lines (already stripped of surrounding whitespace) into
// sentences with aggregated reference ranges, given refs[i] as the
// reference (line or page number, 0 if none) of lines[i]. len(refs) must
// equal len(lines).
func Segment(lines []string, refs []int) []Sentence {
	blocks := buildBlocks(lines, refs)

	var out []Sentence
	for bi, b := range blocks {
		if bi > 0 {
			out = append(out, Sentence{Text: "", RangeMin: 0, RangeMax: 0})
		}
		out = append(out, segmentBlock(b)...)
	}
	return out
}

// buildBlocks groups lines into paragraph blocks: a blank line closes the
// current block, and a line beginning with "- " (a markdown list item)
// starts a new block.
func buildBlocks(lines []string, refs []int) []block {
	var blocks []block
	var cur block
	flush := func() {
		if len(cur.lines) > 0 {
			blocks = append(blocks, cur)
			cur = block{}
		}
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "- ") && len(cur.lines) > 0 {
			flush()
		}
		cur.lines = append(cur.lines, trimmed)
		r := 0
		if i < len(refs) {
			r = refs[i]
		}
		cur.refs = append(cur.refs, r)
	}
	flush()
	return blocks
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

func segmentBlock(b block) []Sentence {
	if len(b.lines) == 0 {
		return nil
	}

	normalized := make([]string, len(b.lines))
	for i, l := range b.lines {
		normalized[i] = normalizeWhitespace(l)
	}

	// lineStarts[i] is the character offset at which normalized[i] begins
	// in the concatenated block text (lines joined by single spaces).
	lineStarts := make([]int, len(normalized))
	var sb strings.Builder
	for i, l := range normalized {
		lineStarts[i] = sb.Len()
		if i > 0 {
			sb.WriteByte(' ')
			lineStarts[i] = sb.Len()
		}
		sb.WriteString(l)
	}
	full := sb.String()

	spans := splitSentenceSpans(full)

	var out []Sentence
	for _, sp := range spans {
		raw := full[sp[0]:sp[1]]
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		// Map the trimmed text, not the raw span: a span's leading space is
		// the joiner before the next line and belongs to neither line.
		start := sp[0] + strings.Index(raw, text)
		minRef, maxRef := rangeForSpan(start, start+len(text), lineStarts, b.refs)
		out = append(out, Sentence{Text: text, RangeMin: minRef, RangeMax: maxRef})
	}
	return out
}

// splitSentenceSpans returns [start,end) byte-offset pairs covering text,
// split at sentence boundaries found by the rule-based sentenceBoundary
// regex. The exact sentencizer is an implementation detail; any
// multilingual rule-based splitter satisfies the same contract.
func splitSentenceSpans(text string) [][2]int {
	if text == "" {
		return nil
	}
	var spans [][2]int
	start := 0
	matches := sentenceBoundary.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		end := m[3] // end of the punctuation capture group
		if end > start {
			spans = append(spans, [2]int{start, end})
			start = end
		}
	}
	if start < len(text) {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

// rangeForSpan maps a [start,end) character span to the block's source
// lines it overlaps, via a bisect over lineStarts, and returns the
// aggregated (min,max) of those lines' non-zero references.
func rangeForSpan(start, end int, lineStarts []int, refs []int) (int, int) {
	lo := bisectRight(lineStarts, start) - 1
	if lo < 0 {
		lo = 0
	}
	hi := bisectRight(lineStarts, end-1) - 1
	if hi < 0 {
		hi = 0
	}
	if hi >= len(refs) {
		hi = len(refs) - 1
	}

	min, max := 0, 0
	first := true
	for i := lo; i <= hi && i < len(refs); i++ {
		r := refs[i]
		if r == 0 {
			continue
		}
		if first {
			min, max = r, r
			first = false
			continue
		}
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}
	return min, max
}

func bisectRight(a []int, x int) int {
	return sort.Search(len(a), func(i int) bool { return a[i] > x })
}
