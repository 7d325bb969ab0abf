package model

// ExtractionResult is the pure-function output of the pattern extractor
// (C2): same ParsedDocument + ExtractionVersion always produces the same
// result modulo fact IDs (Invariant F1).
type ExtractionResult struct {
	Facts     []Fact
	Clauses   []Clause
	Bindings  []Binding
	CrossRefs []CrossReference
	Aliases   []Binding // binding_type=alias subset, kept alongside Bindings for convenience
	Slots     []ClauseFactSlot
}
