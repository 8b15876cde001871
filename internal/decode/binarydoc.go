package decode

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// tinyImageThreshold is the byte-size floor (of the whole encoded image)
// below which an embedded image is skipped entirely rather than sent to vision. ODT/DOCX
// containers don't expose pixel dimensions without a full image decode, so
// this is a size proxy rather than the PDF decoder's pixel-based check.
const tinyImageThreshold = 1024

// wordTextRun and wordParagraph model just enough of OOXML's
// word/document.xml to pull paragraph text out in order; ODT's
// content.xml is handled by the generic textNodes fallback below.
type wordTextRun struct {
	Text string `xml:",chardata"`
}

type wordParagraph struct {
	Runs []wordTextRun `xml:"r>t"`
}

type wordDocument struct {
	Paragraphs []wordParagraph `xml:"body>p"`
}

// BinaryDocument decodes ODT/DOCX-style zip containers: the main document
// part is converted to plain text, then embedded images are extracted and
// appended as extra bracketed lines, one per image that produced vision
// text ("[Unprocessable Image]" for one that didn't).
type BinaryDocument struct {
	Vision VisionFunc
}

func (d BinaryDocument) Decode(ctx context.Context, data []byte) (Content, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Content{}, fmt.Errorf("%w: open container: %v", ErrUnprocessable, err)
	}

	text, textErr := d.extractText(zr)
	images := d.extractImages(zr)

	var lines []string
	if textErr == nil && strings.TrimSpace(text) != "" {
		lines = splitNonEmptyLines(text)
	}

	for _, img := range images {
		if len(img) < tinyImageThreshold {
			continue
		}
		line := "[Unprocessable Image]"
		if d.Vision != nil {
			if out, ok := d.Vision(ctx, img); ok {
				line = fmt.Sprintf("[Image: %s]", out)
			}
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return Content{}, fmt.Errorf("%w: no extractable content", ErrUnprocessable)
	}
	refs := make([]int, len(lines))
	for i := range lines {
		refs[i] = i + 1
	}
	return NewContent(lines, refs, nil)
}

func (d BinaryDocument) extractText(zr *zip.Reader) (string, error) {
	for _, name := range []string{"word/document.xml", "content.xml"} {
		f := findZipFile(zr, name)
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if name == "word/document.xml" {
			var doc wordDocument
			if err := xml.Unmarshal(raw, &doc); err == nil {
				var sb strings.Builder
				for _, p := range doc.Paragraphs {
					for _, r := range p.Runs {
						sb.WriteString(r.Text)
					}
					sb.WriteString("\n")
				}
				return sb.String(), nil
			}
		}
		return textFromGenericXML(raw), nil
	}
	return "", fmt.Errorf("no recognised document part found")
}

// textFromGenericXML strips tags and keeps character data, used for ODT's
// content.xml where the element vocabulary is large and paragraph
// boundaries are approximated by ending a line after every element whose
// local name is "p" (ODT's text:p).
func textFromGenericXML(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func (d BinaryDocument) extractImages(zr *zip.Reader) [][]byte {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") || strings.HasPrefix(f.Name, "Pictures/") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	var out [][]byte
	for _, name := range names {
		f := findZipFile(zr, name)
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
