// Package docsource turns raw document bytes into a model.ParsedDocument
// with stable, monotonic character offsets (spec.md §4.1). Every source
// is a pure function of its input bytes: no network calls, no disk writes.
package docsource

import (
	"github.com/sohamzycus/contractos/internal/model"
)

// Format names a supported input encoding.
type Format string

const (
	FormatText Format = "text"
	FormatDocx Format = "docx"
	FormatPdf  Format = "pdf"
)

// Source parses raw bytes of a known Format into a ParsedDocument.
type Source interface {
	Parse(data []byte, format Format) (model.ParsedDocument, error)
}

// NewUnextractableError reports a document with no extractable text layer
// (e.g. an image-only PDF), per spec.md §4.1's UnextractableDocument failure mode.
func NewUnextractableError(reason string) error {
	return model.NewError(model.KindExtraction, "unextractable_document: "+reason, nil)
}

// NewParseError reports a corrupt archive or unsupported format.
func NewParseError(reason string, cause error) error {
	return model.NewError(model.KindInput, "parse_error: "+reason, cause)
}
