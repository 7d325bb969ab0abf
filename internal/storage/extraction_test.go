package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/model"
)

func buildSampleExtraction(t *testing.T, docID model.DocumentID) model.ExtractionResult {
	t.Helper()
	source := "Section 3. Termination. Either party may terminate upon 30 days notice."

	clauseFact, err := model.NewFact(docID, model.FactTypeClause, nil, source, model.Evidence{TextSpan: source, CharStart: 0, CharEnd: len(source)}, source)
	require.NoError(t, err)

	bodySpan := "Either party may terminate upon 30 days notice."
	start := len("Section 3. Termination. ")
	bodyFact, err := model.NewFact(docID, model.FactTypeClauseText, nil, bodySpan, model.Evidence{TextSpan: bodySpan, CharStart: start, CharEnd: start + len(bodySpan)}, source)
	require.NoError(t, err)

	clause, err := model.NewClause(docID, clauseFact, model.ClauseTypeTermination, "Termination", nil, []model.Fact{bodyFact}, nil, model.ClassificationMethodPattern, nil)
	require.NoError(t, err)

	slot := model.ClauseFactSlot{
		ClauseID:       clause.ClauseID,
		FactSpecName:   "notice_period",
		Status:         model.SlotStatusFilled,
		FilledByFactID: &bodyFact.FactID,
		Required:       true,
	}

	binding := model.NewBinding(docID, model.BindingTypeDefinition, "Notice Period", "30 days", bodyFact.FactID, "")

	crossRef := model.NewCrossReference(clause.ClauseID, "Section 7", model.ReferenceTypeSection, model.ReferenceEffectConditions, "subject to Section 7", clauseFact.FactID)

	return model.ExtractionResult{
		Facts:     []model.Fact{clauseFact, bodyFact},
		Clauses:   []model.Clause{clause},
		Slots:     []model.ClauseFactSlot{slot},
		Bindings:  []model.Binding{binding},
		CrossRefs: []model.CrossReference{crossRef},
	}
}

func TestInsertExtractionResult_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := mustContract(t, "Supply Agreement")
	require.NoError(t, db.InsertContract(ctx, c))

	result := buildSampleExtraction(t, c.DocumentID)
	require.NoError(t, db.InsertExtractionResult(ctx, result))

	facts, err := db.GetFacts(ctx, c.DocumentID, model.FactFilter{})
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	clauseType := model.ClauseTypeTermination
	clauses, err := db.GetClauses(ctx, c.DocumentID, &clauseType)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "Termination", clauses[0].Heading)
	assert.Len(t, clauses[0].ContainedFactIDs, 1)

	bindings, err := db.GetBindings(ctx, c.DocumentID)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "30 days", bindings[0].ResolvesTo)
	assert.Equal(t, model.BindingScopeContract, bindings[0].Scope)

	crossRefs, err := db.GetCrossRefs(ctx, c.DocumentID)
	require.NoError(t, err)
	require.Len(t, crossRefs, 1)
	assert.Equal(t, "Section 7", crossRefs[0].TargetReference)
	assert.False(t, crossRefs[0].Resolved)

	slots, err := db.GetSlots(ctx, clauses[0].ClauseID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, model.SlotStatusFilled, slots[0].Status)
}

func TestGetFacts_FilteredByType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := mustContract(t, "Filtered Agreement")
	require.NoError(t, db.InsertContract(ctx, c))

	result := buildSampleExtraction(t, c.DocumentID)
	require.NoError(t, db.InsertExtractionResult(ctx, result))

	ft := model.FactTypeClauseText
	facts, err := db.GetFacts(ctx, c.DocumentID, model.FactFilter{FactType: &ft})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, model.FactTypeClauseText, facts[0].FactType)
}

func TestInsertExtractionResult_RejectsBrokenForeignKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// No contract was ever inserted for this document ID — the facts.document_id
	// foreign key must reject the write.
	orphanDoc := model.NewDocumentID()
	result := buildSampleExtraction(t, orphanDoc)

	err := db.InsertExtractionResult(ctx, result)
	require.Error(t, err)
}
