package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFact_EnforcesOffsetValidity(t *testing.T) {
	source := "Alpha Corp and Beta Services Ltd agree."
	ev := Evidence{TextSpan: "Alpha Corp", CharStart: 0, CharEnd: 10}
	party := EntityTypeParty

	f, err := NewFact("doc-1", FactTypeEntity, &party, "Alpha Corp", ev, source)
	require.NoError(t, err)
	require.Equal(t, "Alpha Corp", f.Evidence.TextSpan)

	_, err = NewFact("doc-1", FactTypeEntity, &party, "Alpha Corp", Evidence{TextSpan: "wrong", CharStart: 0, CharEnd: 10}, source)
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestNewFact_RejectsOutOfBoundsRange(t *testing.T) {
	source := "short"
	ev := Evidence{TextSpan: "short", CharStart: 0, CharEnd: 999}
	_, err := NewFact("doc-1", FactTypeTextSpan, nil, "short", ev, source)
	require.Error(t, err)
}

func TestNewFact_EntityRequiresEntityType(t *testing.T) {
	source := "text"
	_, err := NewFact("doc-1", FactTypeEntity, nil, "text", Evidence{TextSpan: "text", CharStart: 0, CharEnd: 4}, source)
	require.Error(t, err)
}

func TestFact_Contains(t *testing.T) {
	outer := Fact{Evidence: Evidence{CharStart: 0, CharEnd: 100}}
	inner := Fact{Evidence: Evidence{CharStart: 10, CharEnd: 20}}
	outside := Fact{Evidence: Evidence{CharStart: 90, CharEnd: 110}}
	require.True(t, outer.Contains(inner))
	require.False(t, outer.Contains(outside))
}
