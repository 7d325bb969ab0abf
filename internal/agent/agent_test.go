package agent_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/agent"
	"github.com/sohamzycus/contractos/internal/binding"
	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
	"github.com/sohamzycus/contractos/migrations"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	path := t.TempDir() + "/contractos.db"
	db, err := storage.New(ctx, path, false, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(ctx, migrations.FS))
	return db
}

func seedDocument(t *testing.T, db *storage.DB, mock *lm.MockProvider, idx *embedindex.Index) model.DocumentID {
	t.Helper()
	ctx := context.Background()

	contract, err := model.NewContract("Master Services Agreement", model.FileFormatDocx, "deadbeef", []string{"Acme", "Globex"}, nil, 500, "v1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertContract(ctx, contract))

	text := "Either party may terminate this agreement upon thirty days written notice."
	clauseFact, err := model.NewFact(contract.DocumentID, model.FactTypeClause, nil, text, model.Evidence{
		TextSpan: text, CharStart: 0, CharEnd: len(text),
	}, text)
	require.NoError(t, err)

	clauseTextFact, err := model.NewFact(contract.DocumentID, model.FactTypeClauseText, nil, text, model.Evidence{
		TextSpan: text, CharStart: 0, CharEnd: len(text),
	}, text)
	require.NoError(t, err)

	clause, err := model.NewClause(contract.DocumentID, clauseFact, model.ClauseTypeTermination, "Termination", nil,
		[]model.Fact{clauseTextFact}, nil, model.ClassificationMethodPattern, nil)
	require.NoError(t, err)

	result := model.ExtractionResult{
		Facts:   []model.Fact{clauseFact, clauseTextFact},
		Clauses: []model.Clause{clause},
	}
	require.NoError(t, db.InsertExtractionResult(ctx, result))

	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("chunk-1"), DocumentID: contract.DocumentID, ChunkType: model.ChunkTypeFact, SourceFactID: clauseTextFact.FactID, Text: text},
	}
	require.NoError(t, idx.IndexDocument(ctx, contract.DocumentID, chunks))

	return contract.DocumentID
}

func TestAnswer_FactGroundedResponseCitesRetrievedFact(t *testing.T) {
	db := newTestDB(t)
	mock := lm.NewMockProvider()
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, mock, 32)
	require.NoError(t, err)

	docID := seedDocument(t, db, mock, idx)

	resolver, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	workspace, err := model.NewWorkspace("test workspace", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertWorkspace(context.Background(), workspace))

	// Fetch the seeded fact so the mock response can cite its exact ID.
	facts, err := db.GetFacts(context.Background(), docID, model.FactFilter{})
	require.NoError(t, err)
	var clauseTextFactID model.FactID
	for _, f := range facts {
		if f.FactType == model.FactTypeClauseText {
			clauseTextFactID = f.FactID
		}
	}
	require.NotEmpty(t, clauseTextFactID)

	query := model.Query{
		Text:              "Either party may terminate this agreement upon thirty days written notice.",
		TargetDocumentIDs: []model.DocumentID{docID},
		Scope:             model.QueryScopeSingle,
	}
	mock.Default = `{"answer_type":"fact","answer_text":"Either party may terminate with 30 days notice.","cited_fact_ids":["` + string(clauseTextFactID) + `"],"cited_binding_ids":[],"reasoning_summary":"Directly stated by the termination clause."}`

	a := agent.New(db, idx, resolver, mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	result, err := a.Answer(context.Background(), workspace.WorkspaceID, query)
	require.NoError(t, err)

	require.Equal(t, model.AnswerTypeFact, result.AnswerType)
	require.NotNil(t, result.Confidence)
	require.InDelta(t, 1.0, *result.Confidence, 0.0001)
	require.Contains(t, result.CitedFactIDs, clauseTextFactID)
	require.NotEmpty(t, result.Provenance.Nodes)
}

func TestAnswer_NoProviderConfiguredReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	embedder := lm.NewMockProvider()
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, embedder, 32)
	require.NoError(t, err)

	docID := seedDocument(t, db, embedder, idx)

	resolver, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	workspace, err := model.NewWorkspace("test workspace", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertWorkspace(context.Background(), workspace))

	query := model.Query{
		Text:              "Either party may terminate this agreement upon thirty days written notice.",
		TargetDocumentIDs: []model.DocumentID{docID},
		Scope:             model.QueryScopeSingle,
	}

	a := agent.New(db, idx, resolver, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	result, err := a.Answer(context.Background(), workspace.WorkspaceID, query)
	require.NoError(t, err)
	require.Equal(t, model.AnswerTypeNotFound, result.AnswerType)
}

func TestAnswer_InventedCitationIsDroppedAndEmptyInferenceDowngrades(t *testing.T) {
	db := newTestDB(t)
	mock := lm.NewMockProvider()
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, mock, 32)
	require.NoError(t, err)

	docID := seedDocument(t, db, mock, idx)

	resolver, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	workspace, err := model.NewWorkspace("test workspace", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertWorkspace(context.Background(), workspace))

	query := model.Query{
		Text:              "Either party may terminate this agreement upon thirty days written notice.",
		TargetDocumentIDs: []model.DocumentID{docID},
		Scope:             model.QueryScopeSingle,
	}
	mock.Default = `{"answer_type":"inference","answer_text":"This likely implies an at-will relationship.","confidence":0.9,"cited_fact_ids":["nonexistent-fact-id"],"cited_binding_ids":[],"reasoning_summary":"Speculative inference with an invented citation."}`

	a := agent.New(db, idx, resolver, mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	result, err := a.Answer(context.Background(), workspace.WorkspaceID, query)
	require.NoError(t, err)

	require.Equal(t, model.AnswerTypeNotFound, result.AnswerType)
	require.Empty(t, result.CitedFactIDs)
}
