package workspace_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
	"github.com/sohamzycus/contractos/internal/workspace"
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

func TestCreateAndAddDocument(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)

	contract, err := model.NewContract("NDA", model.FileFormatPdf, "abc123", nil, nil, 10, "v1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertContract(ctx, contract))

	updated, err := svc.AddDocument(ctx, w.WorkspaceID, contract.DocumentID)
	require.NoError(t, err)
	require.Contains(t, updated.IndexedDocumentIDs, contract.DocumentID)
}

func TestRemoveDocument_LeavesContractUntouched(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)

	contract, err := model.NewContract("NDA", model.FileFormatPdf, "abc123", nil, nil, 10, "v1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertContract(ctx, contract))

	_, err = svc.AddDocument(ctx, w.WorkspaceID, contract.DocumentID)
	require.NoError(t, err)

	updated, err := svc.RemoveDocument(ctx, w.WorkspaceID, contract.DocumentID)
	require.NoError(t, err)
	require.NotContains(t, updated.IndexedDocumentIDs, contract.DocumentID)

	stillThere, err := db.GetContract(ctx, contract.DocumentID)
	require.NoError(t, err)
	require.Equal(t, contract.DocumentID, stillThere.DocumentID)
}

func TestPurgeDanglingReferences_DropsDeletedContractFromWorkspace(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)

	contract, err := model.NewContract("NDA", model.FileFormatPdf, "abc123", nil, nil, 10, "v1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.InsertContract(ctx, contract))
	_, err = svc.AddDocument(ctx, w.WorkspaceID, contract.DocumentID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteContract(ctx, contract.DocumentID))
	require.NoError(t, svc.PurgeDanglingReferences(ctx))

	after, err := svc.GetWorkspace(ctx, w.WorkspaceID)
	require.NoError(t, err)
	require.NotContains(t, after.IndexedDocumentIDs, contract.DocumentID)
}

func TestSessionLifecycle_CompletedSessionIsImmutable(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)

	docID := model.NewDocumentID()
	session, err := svc.StartSession(ctx, w.WorkspaceID, "What is the termination notice period?", model.QueryScopeSingle, []model.DocumentID{docID})
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusActive, session.Status)

	completed, err := svc.CompleteSession(ctx, session, model.QueryResult{AnswerType: model.AnswerTypeNotFound}, 120)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusCompleted, completed.Status)

	_, err = svc.CompleteSession(ctx, completed, model.QueryResult{AnswerType: model.AnswerTypeFact}, 50)
	require.Error(t, err)
}

func TestListSessions_DefaultsToPageSizeTwenty(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)
	docID := model.NewDocumentID()

	for i := 0; i < 25; i++ {
		_, err := svc.StartSession(ctx, w.WorkspaceID, "query", model.QueryScopeSingle, []model.DocumentID{docID})
		require.NoError(t, err)
	}

	sessions, err := svc.ListSessions(ctx, w.WorkspaceID, 0, 0)
	require.NoError(t, err)
	require.Len(t, sessions, workspace.DefaultSessionPageSize)
}

func TestClearSessions_RemovesAllSessionsForWorkspace(t *testing.T) {
	db := newTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	w, err := svc.CreateWorkspace(ctx, "Legal Review")
	require.NoError(t, err)
	docID := model.NewDocumentID()
	_, err = svc.StartSession(ctx, w.WorkspaceID, "query", model.QueryScopeSingle, []model.DocumentID{docID})
	require.NoError(t, err)

	require.NoError(t, svc.ClearSessions(ctx, w.WorkspaceID))

	sessions, err := svc.ListSessions(ctx, w.WorkspaceID, 0, 10)
	require.NoError(t, err)
	require.Empty(t, sessions)
}
