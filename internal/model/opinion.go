package model

import "time"

// Opinion has the same evidentiary shape as Inference but carries a severity
// and mandatory role/policy context instead of a confidence score.
// Invariant O1: opinions are never persisted in the TrustGraph — they exist
// only as return values of on-demand evaluators. internal/storage has no
// table for this type and no insert path accepts it.
type Opinion struct {
	OpinionID            OpinionID
	DocumentID           DocumentID
	InferenceType        string
	Claim                string
	SupportingFactIDs    []FactID
	SupportingBindingIDs []BindingID
	ReasoningChain       string
	Severity             string
	RoleContext          string
	PolicyReference       string
	GeneratedBy          string
	GeneratedAt          time.Time
	QueryID              *QueryID
}

// NewOpinion mirrors Invariant I1's evidence requirement and additionally
// requires RoleContext and PolicyReference, per spec §3's Opinion shape.
func NewOpinion(docID DocumentID, inferenceType, claim string, supportingFactIDs []FactID, supportingBindingIDs []BindingID, reasoningChain, severity, roleContext, policyReference, generatedBy string, generatedAt time.Time, queryID *QueryID) (Opinion, error) {
	if len(supportingFactIDs) == 0 {
		return Opinion{}, NewError(KindValidation, "opinion requires at least one supporting fact", nil)
	}
	if roleContext == "" || policyReference == "" {
		return Opinion{}, NewError(KindValidation, "opinion requires role_context and policy_reference", nil)
	}
	return Opinion{
		OpinionID:            newOpinionID(),
		DocumentID:           docID,
		InferenceType:        inferenceType,
		Claim:                claim,
		SupportingFactIDs:    supportingFactIDs,
		SupportingBindingIDs: supportingBindingIDs,
		ReasoningChain:       reasoningChain,
		Severity:             severity,
		RoleContext:          roleContext,
		PolicyReference:      policyReference,
		GeneratedBy:          generatedBy,
		GeneratedAt:          generatedAt,
		QueryID:              queryID,
	}, nil
}
