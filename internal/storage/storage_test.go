package storage_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
	"github.com/sohamzycus/contractos/migrations"
)

// newTestDB opens a fresh SQLite database file under t.TempDir() and runs migrations,
// giving each test a clean TrustGraph without sharing state.
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

func mustContract(t *testing.T, title string) model.Contract {
	t.Helper()
	c, err := model.NewContract(title, model.FileFormatDocx, "deadbeef", []string{"Acme", "Globex"}, nil, 500, "v1", time.Now().UTC())
	require.NoError(t, err)
	return c
}

func TestInsertAndGetContract(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := mustContract(t, "Master Services Agreement")
	require.NoError(t, db.InsertContract(ctx, c))

	got, err := db.GetContract(ctx, c.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, c.FileHash, got.FileHash)
	assert.Equal(t, c.Parties, got.Parties)
}

func TestGetContract_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetContract(ctx, model.NewDocumentID())
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestListContracts_OrderedByIndexedAtDesc(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	older := mustContract(t, "Older Agreement")
	older.IndexedAt = time.Now().UTC().Add(-time.Hour)
	newer := mustContract(t, "Newer Agreement")

	require.NoError(t, db.InsertContract(ctx, older))
	require.NoError(t, db.InsertContract(ctx, newer))

	list, err := db.ListContracts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.DocumentID, list[0].DocumentID)
	assert.Equal(t, older.DocumentID, list[1].DocumentID)
}

func TestDeleteContract_CascadesFactsAndClauses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := mustContract(t, "Terminable Agreement")
	require.NoError(t, db.InsertContract(ctx, c))

	source := "This Agreement may be terminated by either party."
	clauseFact, err := model.NewFact(c.DocumentID, model.FactTypeClause, nil, source, model.Evidence{TextSpan: source, CharStart: 0, CharEnd: len(source)}, source)
	require.NoError(t, err)

	clause, err := model.NewClause(c.DocumentID, clauseFact, model.ClauseTypeTermination, "Termination", nil, nil, nil, model.ClassificationMethodPattern, nil)
	require.NoError(t, err)

	require.NoError(t, db.InsertExtractionResult(ctx, model.ExtractionResult{
		Facts:   []model.Fact{clauseFact},
		Clauses: []model.Clause{clause},
	}))

	facts, err := db.GetFacts(ctx, c.DocumentID, model.FactFilter{})
	require.NoError(t, err)
	require.Len(t, facts, 1)

	require.NoError(t, db.DeleteContract(ctx, c.DocumentID))

	facts, err = db.GetFacts(ctx, c.DocumentID, model.FactFilter{})
	require.NoError(t, err)
	assert.Empty(t, facts, "facts must cascade-delete with their contract")

	clauses, err := db.GetClauses(ctx, c.DocumentID, nil)
	require.NoError(t, err)
	assert.Empty(t, clauses, "clauses must cascade-delete with their contract")
}

func TestDeleteContract_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.DeleteContract(ctx, model.NewDocumentID())
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestClearAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := mustContract(t, "To Be Cleared")
	require.NoError(t, db.InsertContract(ctx, c))

	require.NoError(t, db.ClearAll(ctx))

	list, err := db.ListContracts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Re-running migrations against an already-migrated database must be a no-op.
	require.NoError(t, db.RunMigrations(ctx, migrations.FS))
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
