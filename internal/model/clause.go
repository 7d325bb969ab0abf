package model

import "fmt"

// ClauseType is drawn from a configurable registry (internal/classify's
// registry.yaml); the constants below are the built-in set spec.md §3 names.
type ClauseType string

const (
	ClauseTypeTermination      ClauseType = "termination"
	ClauseTypePayment          ClauseType = "payment"
	ClauseTypeIndemnity        ClauseType = "indemnity"
	ClauseTypeLiability        ClauseType = "liability"
	ClauseTypeConfidentiality  ClauseType = "confidentiality"
	ClauseTypeSLA              ClauseType = "sla"
	ClauseTypePriceEscalation  ClauseType = "price_escalation"
	ClauseTypePenalty          ClauseType = "penalty"
	ClauseTypeForceMajeure     ClauseType = "force_majeure"
	ClauseTypeAssignment       ClauseType = "assignment"
	ClauseTypeGoverningLaw     ClauseType = "governing_law"
	ClauseTypeWarranty         ClauseType = "warranty"
	ClauseTypeIP               ClauseType = "ip"
	ClauseTypeScheduleAdherence ClauseType = "schedule_adherence"
	ClauseTypeDefinitions      ClauseType = "definitions"
	ClauseTypeGeneral          ClauseType = "general"
	ClauseTypeCustom           ClauseType = "custom"
)

// ClassificationMethod records which classifier stage produced a clause's type.
type ClassificationMethod string

const (
	ClassificationMethodPattern ClassificationMethod = "pattern"
	ClassificationMethodLLM     ClassificationMethod = "llm"
)

// Clause groups a heading and its body under a classified clause type.
// classification_confidence is nil for method=pattern (Open Question in
// spec.md §9: null means "not applicable", never zero).
type Clause struct {
	ClauseID               ClauseID
	DocumentID             DocumentID
	ClauseType             ClauseType
	Heading                string
	SectionNumber          *string
	FactID                 FactID // the clause-span fact this clause is built from (Invariant C1)
	ContainedFactIDs       []FactID
	CrossReferenceIDs      []ReferenceID
	ClassificationMethod   ClassificationMethod
	ClassificationConfidence *float64
}

// NewClause enforces Invariant C1 (clauseFact.FactType == clause, same document)
// and Invariant C2 (every contained fact's evidence lies within the clause span)
// by requiring the caller to pass the resolved Fact values, not just IDs.
func NewClause(docID DocumentID, clauseFact Fact, clauseType ClauseType, heading string, sectionNumber *string, contained []Fact, crossRefs []ReferenceID, method ClassificationMethod, confidence *float64) (Clause, error) {
	if clauseFact.FactType != FactTypeClause {
		return Clause{}, NewError(KindValidation, "clause must be built from a fact of type clause", nil)
	}
	if clauseFact.DocumentID != docID {
		return Clause{}, NewError(KindValidation, "clause fact belongs to a different document", nil)
	}
	containedIDs := make([]FactID, 0, len(contained))
	for _, f := range contained {
		if !clauseFact.Contains(f) {
			return Clause{}, NewError(KindValidation, fmt.Sprintf("contained fact %s evidence [%d,%d) escapes clause span [%d,%d)", f.FactID, f.Evidence.CharStart, f.Evidence.CharEnd, clauseFact.Evidence.CharStart, clauseFact.Evidence.CharEnd), nil)
		}
		containedIDs = append(containedIDs, f.FactID)
	}
	if method == ClassificationMethodPattern {
		confidence = nil
	}
	return Clause{
		ClauseID:                 newClauseID(),
		DocumentID:               docID,
		ClauseType:               clauseType,
		Heading:                  heading,
		SectionNumber:            sectionNumber,
		FactID:                   clauseFact.FactID,
		ContainedFactIDs:         containedIDs,
		CrossReferenceIDs:        crossRefs,
		ClassificationMethod:     method,
		ClassificationConfidence: confidence,
	}, nil
}

// SlotStatus enumerates whether a clause's mandatory/optional fact slot was filled.
type SlotStatus string

const (
	SlotStatusFilled  SlotStatus = "filled"
	SlotStatusMissing SlotStatus = "missing"
	SlotStatusPartial SlotStatus = "partial"
)

// ClauseFactSlot records whether one expected fact slot for a clause type was found.
type ClauseFactSlot struct {
	ClauseID     ClauseID
	FactSpecName string
	Status       SlotStatus
	FilledByFactID *FactID
	Required     bool
}

// ClauseTypeSpec is a registry entry describing the fact slots expected for a clause type.
type ClauseTypeSpec struct {
	TypeID          string
	DisplayName     string
	MandatoryFacts  []FactSpec
	OptionalFacts   []FactSpec
	CommonCrossRefs []string
}

// FactSpec names an expected fact slot: the kind of fact and, for entity facts, the required entity type.
type FactSpec struct {
	Name       string
	FactType   FactType
	EntityType *EntityType
}
