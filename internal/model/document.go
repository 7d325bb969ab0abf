package model

// Paragraph is one paragraph of a parsed document, with a stable character offset (spec §4.1).
type Paragraph struct {
	Text           string
	CharStart      int
	CharEnd        int
	StructuralPath string
	PageNumber     *int
}

// TableCell is one non-empty cell of a parsed document's tables (spec §4.1).
type TableCell struct {
	Row        int
	Col        int
	Text       string
	CharStart  int
	CharEnd    int
	PageNumber *int
	ColHeader  *string
}

// Heading is one heading of a parsed document (spec §4.1).
type Heading struct {
	Text          string
	Level         int
	SectionNumber *string
	CharStart     int
	CharEnd       int
}

// ParsedDocument is the output of a Document Source (C1): a paragraph/table
// stream with stable, monotonic character offsets over the full text.
type ParsedDocument struct {
	Text       string
	Paragraphs []Paragraph
	Tables     []TableCell
	Headings   []Heading
}
