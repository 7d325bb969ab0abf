package model

import "time"

// FileFormat enumerates the two supported contract source formats.
type FileFormat string

const (
	FileFormatDocx FileFormat = "docx"
	FileFormatPdf  FileFormat = "pdf"
)

// Contract is created on upload and is immutable thereafter except that
// re-indexing replaces all child entities atomically (spec §3).
type Contract struct {
	DocumentID       DocumentID
	Title            string
	FileFormat       FileFormat
	FileHash         string
	Parties          []string
	EffectiveDate    *time.Time
	WordCount        int
	IndexedAt        time.Time
	ExtractionVersion string
}

// NewContract validates FileFormat and builds a Contract ready for storage.
func NewContract(title string, format FileFormat, fileHash string, parties []string, effectiveDate *time.Time, wordCount int, extractionVersion string, now time.Time) (Contract, error) {
	switch format {
	case FileFormatDocx, FileFormatPdf:
	default:
		return Contract{}, NewError(KindInput, "unsupported file format: "+string(format), nil)
	}
	if fileHash == "" {
		return Contract{}, NewError(KindInput, "file_hash is required", nil)
	}
	return Contract{
		DocumentID:        newDocumentID(),
		Title:             title,
		FileFormat:        format,
		FileHash:          fileHash,
		Parties:           parties,
		EffectiveDate:     effectiveDate,
		WordCount:         wordCount,
		IndexedAt:         now,
		ExtractionVersion: extractionVersion,
	}, nil
}
