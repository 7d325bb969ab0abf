package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/extract"
	"github.com/sohamzycus/contractos/internal/model"
)

// buildDoc assembles a ParsedDocument line-by-line, computing every
// heading/paragraph's CharStart/CharEnd from the actual concatenated text so
// offsets always satisfy NewFact's evidence-range invariant.
func buildDoc(t *testing.T) model.ParsedDocument {
	t.Helper()

	lines := []struct {
		text      string
		isHeading bool
	}{
		{"1. Definitions", true},
		{"Supplier, hereinafter referred to as \"Vendor\", agrees to the terms.", false},
		{"2. Payment", true},
		{"Vendor shall be paid $10,000 within thirty (30) days, subject to Section 3.", false},
		{"3. Termination", true},
		{"Either party may terminate with 90 days notice. The fee is 5% of total value.", false},
	}

	var sb strings.Builder
	var paragraphs []model.Paragraph
	var headings []model.Heading
	offset := 0
	for _, l := range lines {
		start := offset
		sb.WriteString(l.text)
		sb.WriteString("\n")
		end := start + len(l.text)
		offset = end + 1

		if l.isHeading {
			headings = append(headings, model.Heading{Text: l.text, Level: 1, CharStart: start, CharEnd: end})
		} else {
			paragraphs = append(paragraphs, model.Paragraph{Text: l.text, CharStart: start, CharEnd: end, StructuralPath: "body"})
		}
	}

	return model.ParsedDocument{Text: sb.String(), Paragraphs: paragraphs, Headings: headings}
}

func TestExtract_IsDeterministicAcrossRuns(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	r1, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)
	r2, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)

	require.Equal(t, len(r1.Facts), len(r2.Facts))
	for i := range r1.Facts {
		require.Equal(t, r1.Facts[i].FactType, r2.Facts[i].FactType)
		require.Equal(t, r1.Facts[i].Value, r2.Facts[i].Value)
		require.Equal(t, r1.Facts[i].Evidence.CharStart, r2.Facts[i].Evidence.CharStart)
	}
}

func TestExtract_ProducesHeadingAndClauseSpanFacts(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	result, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)

	var headingCount, clauseCount int
	for _, f := range result.Facts {
		switch f.FactType {
		case model.FactTypeHeading:
			headingCount++
		case model.FactTypeClause:
			clauseCount++
		}
	}
	require.Equal(t, 3, headingCount)
	require.Equal(t, 3, clauseCount)
}

func TestExtract_ProducesMoneyDurationAndPercentEntities(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	result, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)

	var money, duration, percent bool
	for _, f := range result.Facts {
		if f.FactType != model.FactTypeEntity || f.EntityType == nil {
			continue
		}
		switch *f.EntityType {
		case model.EntityTypeMoney:
			money = true
		case model.EntityTypeDuration:
			duration = true
		case model.EntityTypePercent:
			percent = true
			require.Equal(t, "0.05", f.Value)
		}
	}
	require.True(t, money, "expected a money entity fact")
	require.True(t, duration, "expected a duration entity fact")
	require.True(t, percent, "expected a percent entity fact")
}

func TestExtract_DetectsAliasCandidate(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	result, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Aliases)
	require.Equal(t, "Vendor", result.Aliases[0].Alias)
}

func TestExtract_DetectsCrossReferenceCandidate(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	result, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, result.CrossRefs)
	require.Equal(t, model.ReferenceEffectConditions, result.CrossRefs[0].Effect)
}

func TestExtract_FactsAreSortedByCharStart(t *testing.T) {
	doc := buildDoc(t)
	docID := model.NewDocumentID()

	result, err := extract.Extract(doc, docID, "v1")
	require.NoError(t, err)
	for i := 1; i < len(result.Facts); i++ {
		require.LessOrEqual(t, result.Facts[i-1].Evidence.CharStart, result.Facts[i].Evidence.CharStart)
	}
}

func TestResolveCrossReferences_AttachesOwningClause(t *testing.T) {
	docID := model.NewDocumentID()
	source := "Section 3 applies here."
	fact, err := model.NewFact(docID, model.FactTypeClauseText, nil, source, model.Evidence{
		TextSpan: source, CharStart: 0, CharEnd: len(source),
	}, source)
	require.NoError(t, err)

	clauseFact, err := model.NewFact(docID, model.FactTypeClause, nil, "heading", model.Evidence{
		TextSpan: source, CharStart: 0, CharEnd: len(source),
	}, source)
	require.NoError(t, err)

	clause, err := model.NewClause(docID, clauseFact, model.ClauseTypeGeneral, "heading", nil, []model.Fact{fact}, nil, model.ClassificationMethodPattern, nil)
	require.NoError(t, err)

	candidates := []extract.CrossRefCandidate{{
		SourceFactID: fact.FactID,
		TargetRaw:    "Section 3",
		RefType:      model.ReferenceTypeSection,
		Effect:       model.ReferenceEffectModifies,
		Context:      source,
	}}

	refs := extract.ResolveCrossReferences([]model.Clause{clause}, candidates)
	require.Len(t, refs, 1)
	require.Equal(t, clause.ClauseID, refs[0].SourceClauseID)
}
