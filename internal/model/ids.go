package model

import "github.com/google/uuid"

// All entities are identified by opaque string IDs (spec §3). Each domain
// type gets its own named string type so a FactID can never be passed where
// a ClauseID is expected, even though both are plain strings on the wire.
type (
	DocumentID  string
	FactID      string
	ClauseID    string
	SlotID      string
	ReferenceID string
	BindingID   string
	InferenceID string
	OpinionID   string
	WorkspaceID string
	SessionID   string
	QueryID     string
	ChunkID     string
)

func newDocumentID() DocumentID   { return DocumentID(uuid.NewString()) }
func newFactID() FactID           { return FactID(uuid.NewString()) }
func newClauseID() ClauseID       { return ClauseID(uuid.NewString()) }
func newReferenceID() ReferenceID { return ReferenceID(uuid.NewString()) }
func newBindingID() BindingID     { return BindingID(uuid.NewString()) }
func newInferenceID() InferenceID { return InferenceID(uuid.NewString()) }
func newOpinionID() OpinionID     { return OpinionID(uuid.NewString()) }
func newWorkspaceID() WorkspaceID { return WorkspaceID(uuid.NewString()) }
func newSessionID() SessionID     { return SessionID(uuid.NewString()) }
func newQueryID() QueryID         { return QueryID(uuid.NewString()) }

// NewDocumentID, NewWorkspaceID are exported because callers outside this
// package (upload handlers, workspace creation) must mint IDs before the
// entity itself can be constructed.
func NewDocumentID() DocumentID   { return newDocumentID() }
func NewWorkspaceID() WorkspaceID { return newWorkspaceID() }
