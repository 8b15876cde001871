package decode

import (
	"bytes"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

// ASCIIMarkup decodes HTML/Markdown-ish documents into plain text,
// preferring readability's main-content extraction for full HTML pages and
// falling back to a direct Markdown conversion when that fails (e.g. a
// markdown or text fragment is fed in directly).
type ASCIIMarkup struct{}

func (ASCIIMarkup) Decode(data []byte) (Content, error) {
	text, err := extractReadableText(data)
	if err != nil || strings.TrimSpace(text) == "" {
		text, err = htmltomarkdown.ConvertString(string(data))
		if err != nil {
			text = string(data)
		}
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	refs := make([]int, len(lines))
	for i := range lines {
		refs[i] = i + 1
	}
	return NewContent(lines, refs, nil)
}

func extractReadableText(data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
