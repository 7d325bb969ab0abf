package embedindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
)

func buildFact(t *testing.T, docID model.DocumentID, value string) model.Fact {
	t.Helper()
	f, err := model.NewFact(docID, model.FactTypeClauseText, nil, value, model.Evidence{
		TextSpan: value, CharStart: 0, CharEnd: len(value),
	}, value)
	require.NoError(t, err)
	return f
}

func TestBuildChunks_IncludesClauseTextFactsAndLongEntities(t *testing.T) {
	docID := model.NewDocumentID()
	clauseText := buildFact(t, docID, "The Supplier shall deliver goods within thirty days of order receipt.")

	short := "30"
	shortType := model.EntityTypeDuration
	shortFact, err := model.NewFact(docID, model.FactTypeEntity, &shortType, short, model.Evidence{
		TextSpan: short, CharStart: 0, CharEnd: len(short),
	}, short)
	require.NoError(t, err)

	long := "thirty calendar days"
	longType := model.EntityTypeDuration
	longFact, err := model.NewFact(docID, model.FactTypeEntity, &longType, long, model.Evidence{
		TextSpan: long, CharStart: 0, CharEnd: len(long),
	}, long)
	require.NoError(t, err)

	result := model.ExtractionResult{Facts: []model.Fact{clauseText, shortFact, longFact}}
	chunks := embedindex.BuildChunks(docID, result)

	require.Len(t, chunks, 2) // clause text + the >=3-token entity; the bare "30" is excluded
	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	require.Contains(t, texts, clauseText.Value)
	require.Contains(t, texts, long)
}

func TestIndexDocument_SemanticSearchRanksRelevantChunkFirst(t *testing.T) {
	dir := t.TempDir()
	provider := lm.NewMockProvider()
	idx, err := embedindex.New(dir, provider, 32)
	require.NoError(t, err)

	docID := model.NewDocumentID()
	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "termination notice period is thirty days"},
		{ChunkID: model.ChunkID("c2"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f2"), Text: "governing law is the state of Delaware"},
	}
	require.NoError(t, idx.IndexDocument(context.Background(), docID, chunks))

	hits, method, err := idx.Search(context.Background(), "termination notice period is thirty days", []model.DocumentID{docID}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, embedindex.RetrievalSemantic, method)
	require.NotEmpty(t, hits)
	require.Equal(t, model.FactID("f1"), hits[0].SourceFactID)
}

func TestSearch_FallsBackToLexicalWhenDocumentIsDegraded(t *testing.T) {
	dir := t.TempDir()
	docID := model.NewDocumentID()
	provider := lm.NewMockProvider()
	idx, err := embedindex.New(dir, provider, 32)
	require.NoError(t, err)

	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "confidentiality obligations survive termination"},
	}
	require.NoError(t, idx.IndexDocument(context.Background(), docID, chunks))
	idx.MarkDegraded(docID)

	hits, method, err := idx.Search(context.Background(), "confidentiality obligations survive termination", []model.DocumentID{docID}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, embedindex.RetrievalLexical, method)
	require.NotEmpty(t, hits)
}

func TestNew_SucceedsWithNilEmbedder(t *testing.T) {
	dir := t.TempDir()
	_, err := embedindex.New(dir, nil, 32)
	require.NoError(t, err)
}

func TestSearch_TopKIsUpperBoundNotLowerBound(t *testing.T) {
	dir := t.TempDir()
	provider := lm.NewMockProvider()
	idx, err := embedindex.New(dir, provider, 32)
	require.NoError(t, err)

	docID := model.NewDocumentID()
	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "payment terms net thirty"},
	}
	require.NoError(t, idx.IndexDocument(context.Background(), docID, chunks))

	hits, _, err := idx.Search(context.Background(), "payment terms net thirty", []model.DocumentID{docID}, 30, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestRemoveDocument_ClearsIndexFiles(t *testing.T) {
	dir := t.TempDir()
	provider := lm.NewMockProvider()
	idx, err := embedindex.New(dir, provider, 32)
	require.NoError(t, err)

	docID := model.NewDocumentID()
	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "some clause text"},
	}
	require.NoError(t, idx.IndexDocument(context.Background(), docID, chunks))
	require.NoError(t, idx.RemoveDocument(docID))

	hits, method, err := idx.Search(context.Background(), "some clause text", []model.DocumentID{docID}, 10, nil)
	require.NoError(t, err)
	require.Equal(t, embedindex.RetrievalLexical, method)
	require.Empty(t, hits)
}

func TestIndexDocumentWithRetry_MarksDegradedWhenNoEmbedder(t *testing.T) {
	dir := t.TempDir()
	idx, err := embedindex.New(dir, nil, 32)
	require.NoError(t, err)

	docID := model.NewDocumentID()
	chunks := []model.Chunk{{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "x"}}

	err = idx.IndexDocumentWithRetry(context.Background(), docID, chunks)
	require.Error(t, err)
	require.True(t, idx.IsDegraded(docID))
}

func TestLexicalSearch_FiltersByChunkType(t *testing.T) {
	dir := t.TempDir()
	provider := lm.NewMockProvider()
	idx, err := embedindex.New(dir, provider, 32)
	require.NoError(t, err)

	docID := model.NewDocumentID()
	chunks := []model.Chunk{
		{ChunkID: model.ChunkID("c1"), DocumentID: docID, ChunkType: model.ChunkTypeFact, SourceFactID: model.FactID("f1"), Text: "termination clause text"},
		{ChunkID: model.ChunkID("c2"), DocumentID: docID, ChunkType: model.ChunkTypeBinding, SourceFactID: model.FactID("f2"), Text: "termination means the end of the agreement"},
	}
	require.NoError(t, idx.IndexDocument(context.Background(), docID, chunks))
	idx.MarkDegraded(docID)

	bindingOnly := model.ChunkTypeBinding
	hits, method, err := idx.Search(context.Background(), "termination", []model.DocumentID{docID}, 10, &bindingOnly)
	require.NoError(t, err)
	require.Equal(t, embedindex.RetrievalLexical, method)
	require.Len(t, hits, 1)
	require.Equal(t, model.FactID("f2"), hits[0].SourceFactID)
}
