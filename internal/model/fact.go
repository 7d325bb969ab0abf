package model

import "fmt"

// FactType enumerates the kinds of facts the pattern extractor produces (spec §3).
type FactType string

const (
	FactTypeTextSpan       FactType = "text_span"
	FactTypeEntity         FactType = "entity"
	FactTypeClause         FactType = "clause"
	FactTypeClauseText     FactType = "clause_text"
	FactTypeTableCell      FactType = "table_cell"
	FactTypeHeading        FactType = "heading"
	FactTypeMetadata       FactType = "metadata"
	FactTypeStructural     FactType = "structural"
	FactTypeCrossReference FactType = "cross_reference"
)

// EntityType enumerates the sub-kind of an entity fact.
type EntityType string

const (
	EntityTypeParty      EntityType = "party"
	EntityTypeDate       EntityType = "date"
	EntityTypeMoney      EntityType = "money"
	EntityTypeProduct    EntityType = "product"
	EntityTypeLocation   EntityType = "location"
	EntityTypeDuration   EntityType = "duration"
	EntityTypeSectionRef EntityType = "section_ref"
	EntityTypePercent    EntityType = "percent"
)

// Evidence pins a fact to an exact character range of the source document.
type Evidence struct {
	TextSpan       string
	CharStart      int
	CharEnd        int
	LocationHint   string
	StructuralPath string
	PageNumber     *int
}

// Fact is immutable and source-addressable (spec §3). Once constructed via
// NewFact it must never be mutated; re-extraction replaces the whole set.
type Fact struct {
	FactID     FactID
	DocumentID DocumentID
	FactType   FactType
	EntityType *EntityType // only set when FactType == FactTypeEntity
	Value      string
	Evidence   Evidence
}

// NewFact enforces Invariant F2: 0 <= char_start <= char_end <= documentLength,
// and that TextSpan equals the substring of source at that range.
func NewFact(docID DocumentID, factType FactType, entityType *EntityType, value string, ev Evidence, source string) (Fact, error) {
	if ev.CharStart < 0 || ev.CharStart > ev.CharEnd || ev.CharEnd > len(source) {
		return Fact{}, NewError(KindValidation, fmt.Sprintf("fact evidence range [%d,%d) out of bounds for document of length %d", ev.CharStart, ev.CharEnd, len(source)), nil)
	}
	if got := source[ev.CharStart:ev.CharEnd]; got != ev.TextSpan {
		return Fact{}, NewError(KindValidation, fmt.Sprintf("fact evidence text_span %q does not match source substring %q", ev.TextSpan, got), nil)
	}
	if factType == FactTypeEntity && entityType == nil {
		return Fact{}, NewError(KindValidation, "entity fact requires an entity_type", nil)
	}
	return Fact{
		FactID:     newFactID(),
		DocumentID: docID,
		FactType:   factType,
		EntityType: entityType,
		Value:      value,
		Evidence:   ev,
	}, nil
}

// Contains reports whether the evidence range of other lies fully within f's range.
// Used to enforce Invariant C2 (clause containment) at clause-construction time.
func (f Fact) Contains(other Fact) bool {
	return f.Evidence.CharStart <= other.Evidence.CharStart && other.Evidence.CharEnd <= f.Evidence.CharEnd
}
