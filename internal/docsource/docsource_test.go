package docsource_test

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/docsource"
	"github.com/sohamzycus/contractos/internal/model"
)

func TestPlainTextSource_SplitsOnBlankLines(t *testing.T) {
	src := docsource.PlainTextSource{}
	doc, err := src.Parse([]byte("First paragraph.\n\nSecond paragraph\nwraps two lines.\n\nThird."), docsource.FormatText)
	require.NoError(t, err)
	require.Len(t, doc.Paragraphs, 3)
	require.Equal(t, "First paragraph.", doc.Paragraphs[0].Text)
	require.Contains(t, doc.Paragraphs[1].Text, "wraps two lines.")
	for _, p := range doc.Paragraphs {
		require.Equal(t, p.Text, doc.Text[p.CharStart:p.CharEnd])
	}
}

func TestPlainTextSource_EmptyIsUnextractable(t *testing.T) {
	src := docsource.PlainTextSource{}
	_, err := src.Parse([]byte("   \n\n  "), docsource.FormatText)
	require.Error(t, err)
	require.Equal(t, model.KindExtraction, model.KindOf(err))
}

func TestPlainTextSource_RejectsWrongFormat(t *testing.T) {
	src := docsource.PlainTextSource{}
	_, err := src.Parse([]byte("text"), docsource.FormatDocx)
	require.Error(t, err)
	require.Equal(t, model.KindInput, model.KindOf(err))
}

func TestDocxSource_ParsesParagraphsAndHeadings(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>ARTICLE 1 - DEFINITIONS</w:t></w:r></w:p>
    <w:p><w:r><w:t>This Agreement is entered into by the parties.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDocx(t, docXML)

	src := docsource.DocxSource{}
	doc, err := src.Parse(data, docsource.FormatDocx)
	require.NoError(t, err)
	require.Len(t, doc.Headings, 1)
	require.Equal(t, "ARTICLE 1 - DEFINITIONS", doc.Headings[0].Text)
	require.Len(t, doc.Paragraphs, 1)
	require.Contains(t, doc.Paragraphs[0].Text, "entered into")
}

func TestDocxSource_RejectsCorruptArchive(t *testing.T) {
	src := docsource.DocxSource{}
	_, err := src.Parse([]byte("not a zip"), docsource.FormatDocx)
	require.Error(t, err)
	require.Equal(t, model.KindInput, model.KindOf(err))
}

func TestPdfSource_ExtractsTjOperators(t *testing.T) {
	content := []byte(`BT /F1 12 Tf (Hello World) Tj ET`)
	data := buildPdfWithStream(t, content)

	src := docsource.PdfSource{}
	doc, err := src.Parse(data, docsource.FormatPdf)
	require.NoError(t, err)
	require.Len(t, doc.Paragraphs, 1)
	require.Equal(t, "Hello World", doc.Paragraphs[0].Text)
}

func TestPdfSource_ImageOnlyIsUnextractable(t *testing.T) {
	content := []byte(`q 1 0 0 1 0 0 cm /Im0 Do Q`)
	data := buildPdfWithStream(t, content)

	src := docsource.PdfSource{}
	_, err := src.Parse(data, docsource.FormatPdf)
	require.Error(t, err)
	require.Equal(t, model.KindExtraction, model.KindOf(err))
}

func TestPdfSource_RejectsMissingHeader(t *testing.T) {
	src := docsource.PdfSource{}
	_, err := src.Parse([]byte("not a pdf"), docsource.FormatPdf)
	require.Error(t, err)
	require.Equal(t, model.KindInput, model.KindOf(err))
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildPdfWithStream(t *testing.T, content []byte) []byte {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	pdf.WriteString("4 0 obj\n<< /Length ")
	pdf.WriteString("0 >>\nstream\n")
	pdf.Write(compressed.Bytes())
	pdf.WriteString("\nendstream\nendobj\n")
	return pdf.Bytes()
}
