package pipeline_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/classify"
	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/pipeline"
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

func TestIngest_PersistsContractFactsClausesAndIndex(t *testing.T) {
	db := newTestDB(t)
	classifier, err := classify.New(classify.DefaultConfig, nil)
	require.NoError(t, err)
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, nil, 32)
	require.NoError(t, err)

	p := pipeline.New(classifier, db, idx, "v1")

	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>TERMINATION</w:t></w:r></w:p>
    <w:p><w:r><w:t>Either party may terminate this agreement upon thirty days written notice.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDocx(t, docXML)

	contract, err := p.Ingest(context.Background(), data, model.FileFormatDocx, "Master Services Agreement", []string{"Acme"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, contract.DocumentID)

	facts, err := db.GetFacts(context.Background(), contract.DocumentID, model.FactFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, facts)

	clauses, err := db.GetClauses(context.Background(), contract.DocumentID, nil)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	require.Equal(t, "TERMINATION", clauses[0].Heading)

	hits, method, err := idx.Search(context.Background(), "terminate this agreement", []model.DocumentID{contract.DocumentID}, 5, nil)
	require.NoError(t, err)
	require.Equal(t, embedindex.RetrievalLexical, method)
	require.NotEmpty(t, hits)
}

func TestIngest_AttachesCrossReferenceIDsToOwningClause(t *testing.T) {
	db := newTestDB(t)
	classifier, err := classify.New(classify.DefaultConfig, nil)
	require.NoError(t, err)
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, nil, 32)
	require.NoError(t, err)

	p := pipeline.New(classifier, db, idx, "v1")

	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>PAYMENT</w:t></w:r></w:p>
    <w:p><w:r><w:t>Payment of all invoiced amounts is subject to Section 3 of this agreement.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDocx(t, docXML)

	contract, err := p.Ingest(context.Background(), data, model.FileFormatDocx, "Master Services Agreement", nil, nil)
	require.NoError(t, err)

	clauses, err := db.GetClauses(context.Background(), contract.DocumentID, nil)
	require.NoError(t, err)
	require.Len(t, clauses, 1)

	crossRefs, err := db.GetCrossRefs(context.Background(), contract.DocumentID)
	require.NoError(t, err)
	require.NotEmpty(t, crossRefs)
	require.Equal(t, clauses[0].ClauseID, crossRefs[0].SourceClauseID)
	require.Contains(t, clauses[0].CrossReferenceIDs, crossRefs[0].ReferenceID)
}

func TestIngest_RejectsUnsupportedFormat(t *testing.T) {
	db := newTestDB(t)
	classifier, err := classify.New(classify.DefaultConfig, nil)
	require.NoError(t, err)
	idxDir := t.TempDir()
	idx, err := embedindex.New(idxDir, nil, 32)
	require.NoError(t, err)

	p := pipeline.New(classifier, db, idx, "v1")

	_, err = p.Ingest(context.Background(), []byte("hello"), model.FileFormat("markdown"), "Doc", nil, nil)
	require.Error(t, err)
}
