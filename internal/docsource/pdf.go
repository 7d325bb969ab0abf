package docsource

import (
	"bytes"
	"compress/zlib"
	"io"
	"regexp"
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// PdfSource extracts the text-drawing operators (Tj/TJ) from a PDF's
// content streams, inflating FlateDecode streams and reading other streams
// as-is. No third-party PDF decoder exists in the retrieved example pack, so
// this is a minimal manual tokenizer (see DESIGN.md). Encrypted PDFs, scanned/image-only
// pages, and nested revisions are explicit non-goals per spec.md §4.1.
type PdfSource struct{}

var (
	streamRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	tjRe     = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	ttjRe    = regexp.MustCompile(`\[((?:[^\]]|\\.)*)\]\s*TJ`)
	tjPartRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	pdfEscRe = regexp.MustCompile(`\\(.)`)
)

func (PdfSource) Parse(data []byte, format Format) (model.ParsedDocument, error) {
	if format != FormatPdf {
		return model.ParsedDocument{}, NewParseError("pdf source only accepts FormatPdf", nil)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return model.ParsedDocument{}, NewParseError("missing %PDF- header", nil)
	}

	var allText []string
	for _, m := range streamRe.FindAllSubmatch(data, -1) {
		raw := m[1]
		decoded, ok := inflateOrRaw(raw)
		if !ok {
			continue
		}
		allText = append(allText, extractShowTextOperators(decoded)...)
	}

	if len(allText) == 0 {
		return model.ParsedDocument{}, NewUnextractableError("no Tj/TJ text-drawing operators found (likely image-only)")
	}

	var b strings.Builder
	var paragraphs []model.Paragraph
	offset := 0
	for _, t := range allText {
		if strings.TrimSpace(t) == "" {
			continue
		}
		start := offset
		b.WriteString(t)
		b.WriteString("\n")
		end := start + len(t)
		offset = end + 1
		paragraphs = append(paragraphs, model.Paragraph{
			Text:           t,
			CharStart:      start,
			CharEnd:        end,
			StructuralPath: "body",
		})
	}

	return model.ParsedDocument{
		Text:       b.String(),
		Paragraphs: paragraphs,
	}, nil
}

// inflateOrRaw attempts zlib decompression (FlateDecode, the overwhelming
// majority case); streams that aren't valid zlib are returned as-is since
// some producers emit uncompressed content streams.
func inflateOrRaw(raw []byte) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return raw, true
	}
	defer func() { _ = r.Close() }()
	decoded, err := io.ReadAll(r)
	if err != nil || len(decoded) == 0 {
		return raw, true
	}
	return decoded, true
}

func extractShowTextOperators(content []byte) []string {
	var out []string
	for _, m := range tjRe.FindAllSubmatch(content, -1) {
		out = append(out, unescapePdfString(string(m[1])))
	}
	for _, m := range ttjRe.FindAllSubmatch(content, -1) {
		var sb strings.Builder
		for _, part := range tjPartRe.FindAllSubmatch(m[1], -1) {
			sb.WriteString(unescapePdfString(string(part[1])))
		}
		out = append(out, sb.String())
	}
	return out
}

func unescapePdfString(s string) string {
	return pdfEscRe.ReplaceAllString(s, "$1")
}
