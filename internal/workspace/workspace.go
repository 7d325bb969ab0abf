// Package workspace is the thin service layer over internal/storage's
// workspace and session tables (spec.md §4.8, C8): it owns the timestamps
// and default pagination the TrustGraph store itself stays agnostic of,
// the way the teacher's internal/service packages sit above internal/storage.
package workspace

import (
	"context"
	"time"

	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
)

// DefaultSessionPageSize is list_sessions' default cap (spec.md §4.8).
const DefaultSessionPageSize = 20

// Service wraps a *storage.DB with workspace/session lifecycle operations.
type Service struct {
	db *storage.DB
}

// New builds a Service over db.
func New(db *storage.DB) *Service {
	return &Service{db: db}
}

// CreateWorkspace inserts a new, empty workspace.
func (s *Service) CreateWorkspace(ctx context.Context, name string) (model.Workspace, error) {
	w, err := model.NewWorkspace(name, time.Now().UTC())
	if err != nil {
		return model.Workspace{}, err
	}
	if err := s.db.InsertWorkspace(ctx, w); err != nil {
		return model.Workspace{}, err
	}
	return w, nil
}

// GetWorkspace fetches a workspace by ID.
func (s *Service) GetWorkspace(ctx context.Context, id model.WorkspaceID) (model.Workspace, error) {
	return s.db.GetWorkspace(ctx, id)
}

// AddDocument appends docID to the workspace's indexed document references
// (spec.md §4.8: "a workspace references contracts by ID").
func (s *Service) AddDocument(ctx context.Context, workspaceID model.WorkspaceID, docID model.DocumentID) (model.Workspace, error) {
	w, err := s.db.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return model.Workspace{}, err
	}
	w = w.AddDocument(docID, time.Now().UTC())
	if err := s.db.UpdateWorkspace(ctx, w); err != nil {
		return model.Workspace{}, err
	}
	return w, nil
}

// RemoveDocument drops docID from the workspace's references. The
// underlying Contract is untouched — a workspace holds references, not
// ownership (spec.md §4.8).
func (s *Service) RemoveDocument(ctx context.Context, workspaceID model.WorkspaceID, docID model.DocumentID) (model.Workspace, error) {
	w, err := s.db.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return model.Workspace{}, err
	}
	w = w.RemoveDocument(docID, time.Now().UTC())
	if err := s.db.UpdateWorkspace(ctx, w); err != nil {
		return model.Workspace{}, err
	}
	return w, nil
}

// PurgeDanglingReferences sweeps every workspace for document IDs whose
// Contract no longer exists, the cleanup DeleteContract leaves behind.
func (s *Service) PurgeDanglingReferences(ctx context.Context) error {
	return s.db.PurgeDanglingReferences(ctx)
}

// StartSession opens a new active ReasoningSession for a query.
func (s *Service) StartSession(ctx context.Context, workspaceID model.WorkspaceID, queryText string, scope model.QueryScope, targetDocumentIDs []model.DocumentID) (model.ReasoningSession, error) {
	session, err := model.NewReasoningSession(workspaceID, queryText, scope, targetDocumentIDs, time.Now().UTC())
	if err != nil {
		return model.ReasoningSession{}, err
	}
	if err := s.db.InsertSession(ctx, session); err != nil {
		return model.ReasoningSession{}, err
	}
	return session, nil
}

// CompleteSession finalizes a session with its result — rejected by the
// storage layer if the session is already completed (append-only, spec.md §4.8).
func (s *Service) CompleteSession(ctx context.Context, session model.ReasoningSession, result model.QueryResult, generationTimeMs int64) (model.ReasoningSession, error) {
	completed := session.Complete(result, time.Now().UTC(), generationTimeMs)
	if err := s.db.UpdateSession(ctx, completed); err != nil {
		return model.ReasoningSession{}, err
	}
	return completed, nil
}

// FailSession marks a session failed with whatever partial result is
// available, so the client can retry (spec.md §4.7 cancellation semantics).
func (s *Service) FailSession(ctx context.Context, session model.ReasoningSession, partial *model.QueryResult) (model.ReasoningSession, error) {
	failed := session.Fail(partial, time.Now().UTC())
	if err := s.db.UpdateSession(ctx, failed); err != nil {
		return model.ReasoningSession{}, err
	}
	return failed, nil
}

// GetSession fetches a session by ID.
func (s *Service) GetSession(ctx context.Context, id model.SessionID) (model.ReasoningSession, error) {
	return s.db.GetSession(ctx, id)
}

// ListSessions returns sessions for a workspace, most-recent-first, applying
// spec.md §4.8's default page size of 20 when limit is unset.
func (s *Service) ListSessions(ctx context.Context, workspaceID model.WorkspaceID, offset, limit int) ([]model.ReasoningSession, error) {
	if limit <= 0 {
		limit = DefaultSessionPageSize
	}
	return s.db.ListSessions(ctx, workspaceID, offset, limit)
}

// ClearSessions deletes every session for a workspace — an explicit user
// action (spec.md §4.8), never triggered implicitly by cleanup.
func (s *Service) ClearSessions(ctx context.Context, workspaceID model.WorkspaceID) error {
	return s.db.ClearSessions(ctx, workspaceID)
}

// MarkSessionsStale flags sessions targeting documentID as stale after a
// re-extraction (spec.md §9 Open Question decision, recorded in DESIGN.md).
func (s *Service) MarkSessionsStale(ctx context.Context, documentID model.DocumentID) error {
	return s.db.MarkSessionsStale(ctx, documentID)
}
