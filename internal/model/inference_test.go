package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewInference_RequiresSupportingFacts(t *testing.T) {
	_, err := NewInference("doc-1", "payment_terms", "claim", nil, nil, "chain", 0.8, "basis", "agent", time.Now(), nil)
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestNewInference_RejectsOutOfRangeConfidence(t *testing.T) {
	_, err := NewInference("doc-1", "payment_terms", "claim", []FactID{"f1"}, nil, "chain", 1.5, "basis", "agent", time.Now(), nil)
	require.Error(t, err)
}

func TestInference_IsLowConfidence(t *testing.T) {
	inf, err := NewInference("doc-1", "t", "claim", []FactID{"f1"}, nil, "chain", 0.4, "basis", "agent", time.Now(), nil)
	require.NoError(t, err)
	require.True(t, inf.IsLowConfidence())

	inf2, err := NewInference("doc-1", "t", "claim", []FactID{"f1"}, nil, "chain", 0.9, "basis", "agent", time.Now(), nil)
	require.NoError(t, err)
	require.False(t, inf2.IsLowConfidence())
}

func TestInference_Invalidate(t *testing.T) {
	inf, err := NewInference("doc-1", "t", "claim", []FactID{"f1"}, nil, "chain", 0.9, "basis", "agent", time.Now(), nil)
	require.NoError(t, err)
	require.Nil(t, inf.InvalidatedBy)

	inv := inf.Invalidate("superseded by amendment")
	require.NotNil(t, inv.InvalidatedBy)
	require.Equal(t, "superseded by amendment", *inv.InvalidatedBy)
	require.Nil(t, inf.InvalidatedBy, "original value must remain unmutated")
}

func TestNewOpinion_RequiresRoleAndPolicy(t *testing.T) {
	_, err := NewOpinion("doc-1", "risk", "claim", []FactID{"f1"}, nil, "chain", "medium", "", "", "agent", time.Now(), nil)
	require.Error(t, err)

	op, err := NewOpinion("doc-1", "risk", "claim", []FactID{"f1"}, nil, "chain", "medium", "procurement", "policy-3.2", "agent", time.Now(), nil)
	require.NoError(t, err)
	require.Equal(t, "medium", op.Severity)
}
