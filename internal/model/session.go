package model

import "time"

// QueryScope controls how far a document agent query is allowed to range.
// Phase-1 only single is implemented; family/repository are interfaces only
// (spec §4.7 step 1).
type QueryScope string

const (
	QueryScopeSingle     QueryScope = "single"
	QueryScopeFamily     QueryScope = "family"
	QueryScopeRepository QueryScope = "repository"
)

// SessionStatus tracks a ReasoningSession's lifecycle.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// AnswerType is one of the four permitted output shapes (spec §4.7 step 5).
type AnswerType string

const (
	AnswerTypeFact      AnswerType = "fact"
	AnswerTypeBinding   AnswerType = "binding"
	AnswerTypeInference AnswerType = "inference"
	AnswerTypeNotFound  AnswerType = "not_found"
)

// RetrievalMethod records whether a query used semantic or lexical-fallback retrieval.
type RetrievalMethod string

const (
	RetrievalMethodSemantic        RetrievalMethod = "semantic"
	RetrievalMethodLexicalFallback RetrievalMethod = "lexical_fallback"
)

// QueryResult is the typed outcome of Document Agent's answer() operation (spec §4.7).
type QueryResult struct {
	AnswerType      AnswerType
	AnswerText      string
	Confidence      *float64
	CitedFactIDs    []FactID
	CitedBindingIDs []BindingID
	ReasoningSummary string
	Provenance      ProvenanceChain
	RetrievalMethod RetrievalMethod
	Degraded        bool // set on the not_found result when no LM provider is configured, and on the partial result of a failed session; no facts-only summary is produced
}

// ReasoningSession is the lifecycle of one query, append-only once completed
// (spec §3, §4.8: "once a session has status=completed, no field changes").
type ReasoningSession struct {
	SessionID        SessionID
	WorkspaceID      WorkspaceID
	QueryText        string
	Scope            QueryScope
	TargetDocumentIDs []DocumentID
	Result           *QueryResult
	Status           SessionStatus
	StartedAt        time.Time
	CompletedAt      *time.Time
	GenerationTimeMs *int64
	Stale            bool // set by re-extraction invalidation (spec §9 Open Question), not part of Status
}

// NewReasoningSession starts a session in the active state.
func NewReasoningSession(workspaceID WorkspaceID, queryText string, scope QueryScope, targetDocumentIDs []DocumentID, startedAt time.Time) (ReasoningSession, error) {
	if queryText == "" {
		return ReasoningSession{}, NewError(KindInput, "query text must not be empty", nil)
	}
	if len(targetDocumentIDs) == 0 {
		return ReasoningSession{}, NewError(KindInput, "query must target at least one document", nil)
	}
	return ReasoningSession{
		SessionID:         newSessionID(),
		WorkspaceID:       workspaceID,
		QueryText:         queryText,
		Scope:             scope,
		TargetDocumentIDs: targetDocumentIDs,
		Status:            SessionStatusActive,
		StartedAt:         startedAt,
	}, nil
}

// Complete returns a copy of s finalized with result, enforcing append-only
// semantics: calling Complete or Fail on an already-completed session is a
// programmer error the caller must not attempt (internal/storage rejects the
// UPDATE at the Go level, not just by convention).
func (s ReasoningSession) Complete(result QueryResult, completedAt time.Time, generationTimeMs int64) ReasoningSession {
	s.Result = &result
	s.Status = SessionStatusCompleted
	s.CompletedAt = &completedAt
	s.GenerationTimeMs = &generationTimeMs
	return s
}

// Fail marks s failed, storing whatever partial result was available so the
// client can retry (spec §4.7 cancellation semantics).
func (s ReasoningSession) Fail(partial *QueryResult, completedAt time.Time) ReasoningSession {
	s.Result = partial
	s.Status = SessionStatusFailed
	s.CompletedAt = &completedAt
	return s
}

// IsMutable reports whether s may still be completed/failed (not yet completed).
func (s ReasoningSession) IsMutable() bool { return s.Status != SessionStatusCompleted }
