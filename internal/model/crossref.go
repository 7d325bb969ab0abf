package model

// ReferenceType enumerates the kinds of location a cross-reference can point to.
type ReferenceType string

const (
	ReferenceTypeSection  ReferenceType = "section"
	ReferenceTypeClause   ReferenceType = "clause"
	ReferenceTypeAppendix ReferenceType = "appendix"
	ReferenceTypeSchedule ReferenceType = "schedule"
	ReferenceTypeExternal ReferenceType = "external"
)

// ReferenceEffect enumerates how a cross-reference relates its source clause to its target.
type ReferenceEffect string

const (
	ReferenceEffectModifies    ReferenceEffect = "modifies"
	ReferenceEffectOverrides   ReferenceEffect = "overrides"
	ReferenceEffectConditions  ReferenceEffect = "conditions"
	ReferenceEffectIncorporates ReferenceEffect = "incorporates"
	ReferenceEffectExempts     ReferenceEffect = "exempts"
	ReferenceEffectDelegates   ReferenceEffect = "delegates"
)

// CrossReference is a pointer from one clause to another location (spec §3).
type CrossReference struct {
	ReferenceID     ReferenceID
	SourceClauseID  ClauseID
	TargetReference string // raw text, e.g. "Section 5(b)"
	TargetClauseID  *ClauseID
	ReferenceType   ReferenceType
	Effect          ReferenceEffect
	Context         string
	Resolved        bool
	SourceFactID    FactID
}

// NewCrossReference builds an unresolved cross-reference; resolution (setting
// TargetClauseID and Resolved=true) happens once the target clause is located
// within the same document, performed by the caller via Resolve.
func NewCrossReference(sourceClauseID ClauseID, targetRaw string, refType ReferenceType, effect ReferenceEffect, context string, sourceFactID FactID) CrossReference {
	return CrossReference{
		ReferenceID:     newReferenceID(),
		SourceClauseID:  sourceClauseID,
		TargetReference: targetRaw,
		ReferenceType:   refType,
		Effect:          effect,
		Context:         context,
		Resolved:        false,
		SourceFactID:    sourceFactID,
	}
}

// Resolve returns a copy of r with TargetClauseID set and Resolved=true.
func (r CrossReference) Resolve(targetClauseID ClauseID) CrossReference {
	r.TargetClauseID = &targetClauseID
	r.Resolved = true
	return r
}
