package model

import "time"

// LowConfidenceThreshold marks an inference as low-confidence (Invariant I2);
// the agent must not chain further inferences on it without explicit human gating.
const LowConfidenceThreshold = 0.5

// Inference is a derived claim that must cite evidence (Invariant I1).
type Inference struct {
	InferenceID         InferenceID
	DocumentID          DocumentID
	InferenceType       string
	Claim               string
	SupportingFactIDs   []FactID
	SupportingBindingIDs []BindingID
	ReasoningChain      string
	Confidence          float64
	ConfidenceBasis     string
	GeneratedBy         string
	GeneratedAt         time.Time
	QueryID             *QueryID
	InvalidatedBy       *string // set by Invariant I3 when contradicted; never silently edited
}

// NewInference enforces Invariant I1: supporting_fact_ids must be non-empty.
func NewInference(docID DocumentID, inferenceType, claim string, supportingFactIDs []FactID, supportingBindingIDs []BindingID, reasoningChain string, confidence float64, confidenceBasis, generatedBy string, generatedAt time.Time, queryID *QueryID) (Inference, error) {
	if len(supportingFactIDs) == 0 {
		return Inference{}, NewError(KindValidation, "inference requires at least one supporting fact (Invariant I1)", nil)
	}
	if confidence < 0 || confidence > 1 {
		return Inference{}, NewError(KindValidation, "inference confidence must be in [0,1]", nil)
	}
	return Inference{
		InferenceID:          newInferenceID(),
		DocumentID:           docID,
		InferenceType:        inferenceType,
		Claim:                claim,
		SupportingFactIDs:    supportingFactIDs,
		SupportingBindingIDs: supportingBindingIDs,
		ReasoningChain:       reasoningChain,
		Confidence:           confidence,
		ConfidenceBasis:      confidenceBasis,
		GeneratedBy:          generatedBy,
		GeneratedAt:          generatedAt,
		QueryID:              queryID,
	}, nil
}

// IsLowConfidence reports whether i falls below LowConfidenceThreshold (Invariant I2).
func (i Inference) IsLowConfidence() bool { return i.Confidence < LowConfidenceThreshold }

// Invalidate marks i as contradicted by new evidence (Invariant I3). The
// inference row itself is never edited in place by callers; storage persists
// this as a new write, not a mutation of existing fields.
func (i Inference) Invalidate(reason string) Inference {
	i.InvalidatedBy = &reason
	return i
}
