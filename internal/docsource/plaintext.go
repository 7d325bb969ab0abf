package docsource

import (
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// PlainTextSource treats the whole byte stream as a single paragraph run
// split on blank lines. Used by tests and the CLI's --format=text path.
type PlainTextSource struct{}

func (PlainTextSource) Parse(data []byte, format Format) (model.ParsedDocument, error) {
	if format != FormatText {
		return model.ParsedDocument{}, NewParseError("plain text source only accepts FormatText", nil)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return model.ParsedDocument{}, NewUnextractableError("empty document")
	}

	var paragraphs []model.Paragraph
	offset := 0
	for _, raw := range splitOnBlankLines(text) {
		start := strings.Index(text[offset:], raw) + offset
		end := start + len(raw)
		offset = end
		if strings.TrimSpace(raw) == "" {
			continue
		}
		paragraphs = append(paragraphs, model.Paragraph{
			Text:           raw,
			CharStart:      start,
			CharEnd:        end,
			StructuralPath: "body",
		})
	}
	if len(paragraphs) == 0 {
		return model.ParsedDocument{}, NewUnextractableError("no paragraphs found")
	}

	return model.ParsedDocument{
		Text:       text,
		Paragraphs: paragraphs,
	}, nil
}

// splitOnBlankLines splits on one or more blank lines while preserving each
// paragraph's exact original substring (no trimming), so offsets computed by
// the caller via strings.Index remain exact.
func splitOnBlankLines(text string) []string {
	lines := strings.Split(text, "\n")
	var paragraphs []string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, "\n"))
	}
	return paragraphs
}
