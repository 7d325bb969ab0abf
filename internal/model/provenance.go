package model

// ProvenanceNodeType enumerates the kinds of evidence node in a ProvenanceChain.
type ProvenanceNodeType string

const (
	ProvenanceNodeFact      ProvenanceNodeType = "fact"
	ProvenanceNodeBinding   ProvenanceNodeType = "binding"
	ProvenanceNodeInference ProvenanceNodeType = "inference"
	ProvenanceNodeExternal  ProvenanceNodeType = "external"
	ProvenanceNodeReasoning ProvenanceNodeType = "reasoning"
)

// ProvenanceNode is one link in the evidence chain backing an answer (spec §3).
type ProvenanceNode struct {
	NodeType         ProvenanceNodeType
	ReferenceID      string // the referenced fact/binding/inference ID, opaque here
	Summary          string
	DocumentLocation *string
}

// ProvenanceChain is the ordered list of evidence nodes backing an answer,
// built at step 8 of the Document Agent's orchestration (spec §4.7).
type ProvenanceChain struct {
	Nodes            []ProvenanceNode
	ReasoningSummary string
}
