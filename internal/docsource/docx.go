package docsource

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// DocxSource parses word/document.xml out of a DOCX (a zip archive of XML
// parts). No third-party DOCX decoder exists anywhere in the retrieved
// example pack, so this walks the OOXML body with stdlib archive/zip +
// encoding/xml (see DESIGN.md).
type DocxSource struct{}

var headingStyleRe = regexp.MustCompile(`(?i)^(heading\d|title)$`)

// wBody mirrors the subset of OOXML's w:body we need: paragraphs and tables,
// in document order, each paragraph carrying its style and run text.
type wBody struct {
	XMLName xml.Name   `xml:"document"`
	Body    wBodyInner `xml:"body"`
}

type wBodyInner struct {
	Children []wBodyChild `xml:",any"`
}

type wBodyChild struct {
	XMLName xml.Name
	PStyle  wPStyle `xml:"pPr>pStyle"`
	Runs    []wRun  `xml:"r"`
	Rows    []wRow  `xml:"tr"`
}

type wPStyle struct {
	Val string `xml:"val,attr"`
}

type wRun struct {
	Text []string `xml:"t"`
}

type wRow struct {
	Cells []wCell `xml:"tc"`
}

type wCell struct {
	Paragraphs []wBodyChild `xml:"p"`
}

func (DocxSource) Parse(data []byte, format Format) (model.ParsedDocument, error) {
	if format != FormatDocx {
		return model.ParsedDocument{}, NewParseError("docx source only accepts FormatDocx", nil)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return model.ParsedDocument{}, NewParseError("not a valid zip archive", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return model.ParsedDocument{}, NewParseError("open word/document.xml", openErr)
			}
			docXML, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return model.ParsedDocument{}, NewParseError("read word/document.xml", err)
			}
			break
		}
	}
	if docXML == nil {
		return model.ParsedDocument{}, NewParseError("missing word/document.xml", nil)
	}

	var body wBody
	if err := xml.Unmarshal(docXML, &body); err != nil {
		return model.ParsedDocument{}, NewParseError("unmarshal document.xml", err)
	}

	b := &docxBuilder{}
	for _, child := range body.Body.Children {
		switch child.XMLName.Local {
		case "p":
			b.addParagraph(child)
		case "tbl":
			b.addTable(child)
		}
	}

	if len(b.text) == 0 {
		return model.ParsedDocument{}, NewUnextractableError("no text runs found in document.xml")
	}

	return model.ParsedDocument{
		Text:       b.text.String(),
		Paragraphs: b.paragraphs,
		Tables:     b.tables,
		Headings:   b.headings,
	}, nil
}

type docxBuilder struct {
	text       strings.Builder
	offset     int
	paragraphs []model.Paragraph
	tables     []model.TableCell
	headings   []model.Heading
}

func (b *docxBuilder) runText(child wBodyChild) string {
	var sb strings.Builder
	for _, r := range child.Runs {
		for _, t := range r.Text {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

func (b *docxBuilder) addParagraph(child wBodyChild) {
	text := b.runText(child)
	if strings.TrimSpace(text) == "" {
		return
	}
	start := b.offset
	b.text.WriteString(text)
	b.text.WriteString("\n")
	end := start + len(text)
	b.offset = end + 1

	if headingStyleRe.MatchString(child.PStyle.Val) {
		b.headings = append(b.headings, model.Heading{
			Text:      text,
			Level:     headingLevel(child.PStyle.Val),
			CharStart: start,
			CharEnd:   end,
		})
		return
	}
	b.paragraphs = append(b.paragraphs, model.Paragraph{
		Text:           text,
		CharStart:      start,
		CharEnd:        end,
		StructuralPath: "body",
	})
}

func (b *docxBuilder) addTable(child wBodyChild) {
	// child here is actually a wBodyChild whose XMLName.Local == "tbl"; its
	// rows were not captured by wBodyChild's shallow tags, so re-decode the
	// table rows is unnecessary: Rows is populated directly by encoding/xml
	// since wBodyChild declares a Rows field tagged `xml:"tr"`.
	for rowIdx, row := range child.Rows {
		for colIdx, cell := range row.Cells {
			var cellText strings.Builder
			for _, p := range cell.Paragraphs {
				cellText.WriteString(b.runText(p))
			}
			text := cellText.String()
			if strings.TrimSpace(text) == "" {
				continue
			}
			start := b.offset
			b.text.WriteString(text)
			b.text.WriteString("\n")
			end := start + len(text)
			b.offset = end + 1
			b.tables = append(b.tables, model.TableCell{
				Row:       rowIdx,
				Col:       colIdx,
				Text:      text,
				CharStart: start,
				CharEnd:   end,
			})
		}
	}
}

func headingLevel(style string) int {
	var level int
	if _, err := fmt.Sscanf(strings.ToLower(style), "heading%d", &level); err == nil && level > 0 {
		return level
	}
	return 1
}
