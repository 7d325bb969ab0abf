package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustClauseFact(t *testing.T, docID DocumentID, start, end int, source string) Fact {
	t.Helper()
	f, err := NewFact(docID, FactTypeClause, nil, source[start:end], Evidence{TextSpan: source[start:end], CharStart: start, CharEnd: end}, source)
	require.NoError(t, err)
	return f
}

func TestNewClause_EnforcesContainment(t *testing.T) {
	source := "4. Termination. This agreement may be terminated by either party."
	docID := DocumentID("doc-1")
	clauseFact := mustClauseFact(t, docID, 0, len(source), source)

	within, err := NewFact(docID, FactTypeClauseText, nil, "terminated", Evidence{TextSpan: "terminated", CharStart: 39, CharEnd: 49}, source)
	require.NoError(t, err)

	c, err := NewClause(docID, clauseFact, ClauseTypeTermination, "Termination", nil, []Fact{within}, nil, ClassificationMethodPattern, nil)
	require.NoError(t, err)
	require.Equal(t, ClauseTypeTermination, c.ClauseType)
	require.Nil(t, c.ClassificationConfidence)
	require.Len(t, c.ContainedFactIDs, 1)
}

func TestNewClause_RejectsFactOutsideSpan(t *testing.T) {
	source := "4. Termination. Short clause. 5. Payment. Separate clause entirely here."
	docID := DocumentID("doc-1")
	clauseFact := mustClauseFact(t, docID, 0, 29, source) // "4. Termination. Short clause"

	escaping, err := NewFact(docID, FactTypeClauseText, nil, "Separate", Evidence{TextSpan: "Separate", CharStart: 43, CharEnd: 51}, source)
	require.NoError(t, err)

	_, err = NewClause(docID, clauseFact, ClauseTypeTermination, "Termination", nil, []Fact{escaping}, nil, ClassificationMethodPattern, nil)
	require.Error(t, err)
}

func TestNewClause_RejectsNonClauseFact(t *testing.T) {
	source := "text"
	docID := DocumentID("doc-1")
	notClause, err := NewFact(docID, FactTypeHeading, nil, "text", Evidence{TextSpan: "text", CharStart: 0, CharEnd: 4}, source)
	require.NoError(t, err)

	_, err = NewClause(docID, notClause, ClauseTypeGeneral, "heading", nil, nil, nil, ClassificationMethodPattern, nil)
	require.Error(t, err)
}

func TestNewClause_LLMConfidenceRetained(t *testing.T) {
	source := "clause body"
	docID := DocumentID("doc-1")
	clauseFact := mustClauseFact(t, docID, 0, len(source), source)
	conf := 0.83

	c, err := NewClause(docID, clauseFact, ClauseTypeSLA, "SLA", nil, nil, nil, ClassificationMethodLLM, &conf)
	require.NoError(t, err)
	require.NotNil(t, c.ClassificationConfidence)
	require.Equal(t, 0.83, *c.ClassificationConfidence)
}
