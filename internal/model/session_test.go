package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewReasoningSession_RejectsEmptyQuery(t *testing.T) {
	_, err := NewReasoningSession("ws-1", "", QueryScopeSingle, []DocumentID{"doc-1"}, time.Now())
	require.Error(t, err)
	require.Equal(t, KindInput, KindOf(err))
}

func TestNewReasoningSession_RejectsNoTargets(t *testing.T) {
	_, err := NewReasoningSession("ws-1", "who are the parties?", QueryScopeSingle, nil, time.Now())
	require.Error(t, err)
}

func TestReasoningSession_AppendOnlyOnceCompleted(t *testing.T) {
	s, err := NewReasoningSession("ws-1", "who are the parties?", QueryScopeSingle, []DocumentID{"doc-1"}, time.Now())
	require.NoError(t, err)
	require.True(t, s.IsMutable())

	completed := s.Complete(QueryResult{AnswerType: AnswerTypeFact, AnswerText: "Alpha Corp and Beta Services Ltd"}, time.Now(), 120)
	require.Equal(t, SessionStatusCompleted, completed.Status)
	require.False(t, completed.IsMutable())

	// The original session value is unaffected; callers that accidentally hold
	// a stale reference cannot observe a post-hoc mutation.
	require.Equal(t, SessionStatusActive, s.Status)
}

func TestWorkspace_AddRemoveDocument(t *testing.T) {
	ws, err := NewWorkspace("procurement", time.Now())
	require.NoError(t, err)

	ws = ws.AddDocument("doc-1", time.Now())
	ws = ws.AddDocument("doc-1", time.Now()) // idempotent
	require.Len(t, ws.IndexedDocumentIDs, 1)

	ws = ws.RemoveDocument("doc-1", time.Now())
	require.Empty(t, ws.IndexedDocumentIDs)
}
