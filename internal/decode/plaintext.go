package decode

import (
	"strings"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// Plaintext decodes raw bytes of unknown charset into one line per source
// line, with lines_per_line = [1..n].
type Plaintext struct{}

func (Plaintext) Decode(data []byte) (Content, error) {
	text := decodeCharset(data)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	refs := make([]int, len(lines))
	for i := range lines {
		refs[i] = i + 1
	}
	return NewContent(lines, refs, nil)
}

// decodeCharset detects the byte-slice's charset and transcodes it to UTF-8,
// falling back to the raw bytes (treated as UTF-8/ASCII) when detection or
// transcoding fails.
func decodeCharset(data []byte) string {
	det := chardet.NewTextDetector()
	result, err := det.DetectBest(data)
	if err != nil || result == nil || strings.EqualFold(result.Charset, "UTF-8") {
		return string(data)
	}
	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return string(data)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

var _ = Plaintext{}
