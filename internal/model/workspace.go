package model

import "time"

// Workspace is a persistent user context referencing documents and owning
// sessions. It holds ordered references, never ownership (spec §3) — a
// Contract may appear in many workspaces, and deleting a Contract drops the
// stale reference from each workspace that held it (the purge sweep rewrites
// those workspace rows).
type Workspace struct {
	WorkspaceID       WorkspaceID
	Name              string
	IndexedDocumentIDs []DocumentID
	CreatedAt         time.Time
	LastAccessedAt    time.Time
	Settings          map[string]string
}

// NewWorkspace constructs an empty workspace.
func NewWorkspace(name string, now time.Time) (Workspace, error) {
	if name == "" {
		return Workspace{}, NewError(KindInput, "workspace name is required", nil)
	}
	return Workspace{
		WorkspaceID:        newWorkspaceID(),
		Name:               name,
		IndexedDocumentIDs: nil,
		CreatedAt:          now,
		LastAccessedAt:     now,
		Settings:           map[string]string{},
	}, nil
}

// AddDocument returns a copy of w with docID appended if not already present.
func (w Workspace) AddDocument(docID DocumentID, now time.Time) Workspace {
	for _, id := range w.IndexedDocumentIDs {
		if id == docID {
			w.LastAccessedAt = now
			return w
		}
	}
	w.IndexedDocumentIDs = append(w.IndexedDocumentIDs, docID)
	w.LastAccessedAt = now
	return w
}

// RemoveDocument returns a copy of w with docID removed, preserving order.
func (w Workspace) RemoveDocument(docID DocumentID, now time.Time) Workspace {
	out := make([]DocumentID, 0, len(w.IndexedDocumentIDs))
	for _, id := range w.IndexedDocumentIDs {
		if id != docID {
			out = append(out, id)
		}
	}
	w.IndexedDocumentIDs = out
	w.LastAccessedAt = now
	return w
}
