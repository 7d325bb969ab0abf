package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sohamzycus/contractos/internal/model"
)

// InsertWorkspace writes a new Workspace row.
func (db *DB) InsertWorkspace(ctx context.Context, w model.Workspace) error {
	docIDs, err := marshalJSON(w.IndexedDocumentIDs)
	if err != nil {
		return err
	}
	settings, err := marshalJSON(w.Settings)
	if err != nil {
		return err
	}
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workspaces (workspace_id, name, indexed_document_ids, created_at, last_accessed_at, settings)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(w.WorkspaceID), w.Name, docIDs,
			w.CreatedAt.UTC().Format(time.RFC3339), w.LastAccessedAt.UTC().Format(time.RFC3339), settings,
		)
		if err != nil {
			return classifyWriteErr("insert_workspace", err)
		}
		return nil
	})
}

// GetWorkspace fetches a workspace by ID.
func (db *DB) GetWorkspace(ctx context.Context, id model.WorkspaceID) (model.Workspace, error) {
	row := db.readPool.QueryRowContext(ctx, `
		SELECT workspace_id, name, indexed_document_ids, created_at, last_accessed_at, settings
		FROM workspaces WHERE workspace_id = ?`, string(id))
	return scanWorkspace(row)
}

// UpdateWorkspace overwrites a workspace's mutable fields (document references,
// last_accessed_at, settings) — used after AddDocument/RemoveDocument.
func (db *DB) UpdateWorkspace(ctx context.Context, w model.Workspace) error {
	docIDs, err := marshalJSON(w.IndexedDocumentIDs)
	if err != nil {
		return err
	}
	settings, err := marshalJSON(w.Settings)
	if err != nil {
		return err
	}
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE workspaces SET indexed_document_ids = ?, last_accessed_at = ?, settings = ?
			WHERE workspace_id = ?`,
			docIDs, w.LastAccessedAt.UTC().Format(time.RFC3339), settings, string(w.WorkspaceID),
		)
		if err != nil {
			return classifyWriteErr("update_workspace", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NewNotFoundError("workspace", model.ErrWorkspaceNotFound)
		}
		return nil
	})
}

func scanWorkspace(s scanner) (model.Workspace, error) {
	var (
		w              model.Workspace
		workspaceID    string
		docIDsJSON     string
		createdAt      string
		lastAccessedAt string
		settingsJSON   string
	)
	err := s.Scan(&workspaceID, &w.Name, &docIDsJSON, &createdAt, &lastAccessedAt, &settingsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Workspace{}, NewNotFoundError("workspace", model.ErrWorkspaceNotFound)
		}
		return model.Workspace{}, NewUnavailableError("scan_workspace", err)
	}
	w.WorkspaceID = model.WorkspaceID(workspaceID)
	w.IndexedDocumentIDs, err = unmarshalJSON[[]model.DocumentID](docIDsJSON)
	if err != nil {
		return model.Workspace{}, err
	}
	w.Settings, err = unmarshalJSON[map[string]string](settingsJSON)
	if err != nil {
		return model.Workspace{}, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		w.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, lastAccessedAt); err == nil {
		w.LastAccessedAt = t
	}
	return w, nil
}

// PurgeDanglingReferences drops document IDs from every workspace's
// indexed_document_ids that no longer exist in contracts — the sweep
// DeleteContract leaves for internal/workspace to run (spec §4.8: a
// workspace holds references, not ownership; a deleted contract must not
// leave a dangling ID behind).
func (db *DB) PurgeDanglingReferences(ctx context.Context) error {
	workspaces, err := db.listWorkspaces(ctx)
	if err != nil {
		return err
	}
	contracts, err := db.ListContracts(ctx)
	if err != nil {
		return err
	}
	live := make(map[model.DocumentID]bool, len(contracts))
	for _, c := range contracts {
		live[c.DocumentID] = true
	}

	for _, w := range workspaces {
		filtered := make([]model.DocumentID, 0, len(w.IndexedDocumentIDs))
		changed := false
		for _, id := range w.IndexedDocumentIDs {
			if live[id] {
				filtered = append(filtered, id)
			} else {
				changed = true
			}
		}
		if !changed {
			continue
		}
		w.IndexedDocumentIDs = filtered
		if err := db.UpdateWorkspace(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) listWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT workspace_id, name, indexed_document_ids, created_at, last_accessed_at, settings FROM workspaces`)
	if err != nil {
		return nil, NewUnavailableError("list_workspaces", err)
	}
	defer rows.Close()

	var out []model.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// InsertSession writes a new ReasoningSession row (always status=active, per NewReasoningSession).
func (db *DB) InsertSession(ctx context.Context, s model.ReasoningSession) error {
	targets, err := marshalJSON(s.TargetDocumentIDs)
	if err != nil {
		return err
	}
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reasoning_sessions (session_id, workspace_id, query_text, scope, target_document_ids, status, started_at, stale)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			string(s.SessionID), string(s.WorkspaceID), s.QueryText, string(s.Scope), targets,
			string(s.Status), s.StartedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return classifyWriteErr("insert_session", err)
		}
		return nil
	})
}

// UpdateSession persists a Complete/Fail transition. It refuses to overwrite
// a session that is already completed (spec §4.8 append-only invariant),
// enforced here at the Go level rather than relying on callers alone.
func (db *DB) UpdateSession(ctx context.Context, s model.ReasoningSession) error {
	result, err := marshalJSON(s.Result)
	if err != nil {
		return err
	}
	var completedAt *string
	if s.CompletedAt != nil {
		v := s.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &v
	}
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		var currentStatus string
		err := tx.QueryRowContext(ctx, `SELECT status FROM reasoning_sessions WHERE session_id = ?`, string(s.SessionID)).Scan(&currentStatus)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewNotFoundError("session", model.ErrSessionNotFound)
			}
			return NewUnavailableError("update_session:lookup", err)
		}
		if model.SessionStatus(currentStatus) == model.SessionStatusCompleted {
			return NewIntegrityError("update_session: session is already completed", nil)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE reasoning_sessions SET result = ?, status = ?, completed_at = ?, generation_time_ms = ?
			WHERE session_id = ?`,
			result, string(s.Status), completedAt, s.GenerationTimeMs, string(s.SessionID),
		)
		if err != nil {
			return classifyWriteErr("update_session", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return NewNotFoundError("session", model.ErrSessionNotFound)
		}
		return nil
	})
}

// MarkSessionsStale flags every session targeting documentID as stale,
// without deleting them (spec §9 Open Question: re-extraction invalidates
// sessions by marking them stale, never by deleting history).
func (db *DB) MarkSessionsStale(ctx context.Context, documentID model.DocumentID) error {
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE reasoning_sessions SET stale = 1
			WHERE target_document_ids LIKE '%' || ? || '%'`,
			string(documentID),
		)
		if err != nil {
			return classifyWriteErr("mark_sessions_stale", err)
		}
		return nil
	})
}

// GetSession fetches a session by ID.
func (db *DB) GetSession(ctx context.Context, id model.SessionID) (model.ReasoningSession, error) {
	row := db.readPool.QueryRowContext(ctx, `
		SELECT session_id, workspace_id, query_text, scope, target_document_ids, result, status, started_at, completed_at, generation_time_ms, stale
		FROM reasoning_sessions WHERE session_id = ?`, string(id))
	return scanSession(row)
}

// ListSessions returns sessions for a workspace, most-recent-first, paginated.
func (db *DB) ListSessions(ctx context.Context, workspaceID model.WorkspaceID, offset, limit int) ([]model.ReasoningSession, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT session_id, workspace_id, query_text, scope, target_document_ids, result, status, started_at, completed_at, generation_time_ms, stale
		FROM reasoning_sessions WHERE workspace_id = ?
		ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		string(workspaceID), limit, offset,
	)
	if err != nil {
		return nil, NewUnavailableError("list_sessions", err)
	}
	defer rows.Close()

	var out []model.ReasoningSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClearSessions deletes every session for a workspace (spec §6 clear_workspace_history).
func (db *DB) ClearSessions(ctx context.Context, workspaceID model.WorkspaceID) error {
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM reasoning_sessions WHERE workspace_id = ?`, string(workspaceID))
		if err != nil {
			return classifyWriteErr("clear_sessions", err)
		}
		return nil
	})
}

func scanSession(s scanner) (model.ReasoningSession, error) {
	var (
		out           model.ReasoningSession
		sessionID     string
		workspaceID   string
		scope         string
		targetsJSON   string
		resultJSON    sql.NullString
		status        string
		startedAt     string
		completedAt   sql.NullString
		generationMs  sql.NullInt64
		stale         bool
	)
	err := s.Scan(&sessionID, &workspaceID, &out.QueryText, &scope, &targetsJSON, &resultJSON, &status, &startedAt, &completedAt, &generationMs, &stale)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReasoningSession{}, NewNotFoundError("session", model.ErrSessionNotFound)
		}
		return model.ReasoningSession{}, NewUnavailableError("scan_session", err)
	}
	out.SessionID = model.SessionID(sessionID)
	out.WorkspaceID = model.WorkspaceID(workspaceID)
	out.Scope = model.QueryScope(scope)
	out.Status = model.SessionStatus(status)
	out.Stale = stale
	out.TargetDocumentIDs, err = unmarshalJSON[[]model.DocumentID](targetsJSON)
	if err != nil {
		return model.ReasoningSession{}, err
	}
	if resultJSON.Valid && resultJSON.String != "" {
		result, err := unmarshalJSON[model.QueryResult](resultJSON.String)
		if err != nil {
			return model.ReasoningSession{}, err
		}
		out.Result = &result
	}
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		out.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			out.CompletedAt = &t
		}
	}
	if generationMs.Valid {
		out.GenerationTimeMs = &generationMs.Int64
	}
	return out, nil
}
