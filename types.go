package contractos

import "time"

// ID types are opaque strings backed by UUIDs internally. Named separately
// from internal/model's IDs so external callers never need to import an
// internal package to hold one of these values (same reasoning as the
// teacher's own uuid.UUID-keyed public types).
type (
	DocumentID  string
	FactID      string
	ClauseID    string
	BindingID   string
	InferenceID string
	WorkspaceID string
	SessionID   string
	ReferenceID string
)

// Contract is the public view of a parsed, indexed document.
type Contract struct {
	DocumentID        DocumentID
	Title             string
	FileFormat        string
	FileHash          string
	Parties           []string
	EffectiveDate     *time.Time
	WordCount         int
	IndexedAt         time.Time
	ExtractionVersion string
}

// Fact is a single atomic claim extracted at a fixed character offset.
type Fact struct {
	FactID       FactID
	DocumentID   DocumentID
	FactType     string
	EntityType   *string
	Value        string
	TextSpan     string
	CharStart    int
	CharEnd      int
	LocationHint string
}

// Clause is a classified section of a contract, built from one clause-span Fact.
type Clause struct {
	ClauseID             ClauseID
	DocumentID           DocumentID
	ClauseType           string
	Heading              string
	SectionNumber        *string
	FactID               FactID
	ContainedFactIDs     []FactID
	CrossReferenceIDs    []ReferenceID
	ClassificationMethod string
	ClassificationConfidence *float64
}

// ClauseFactSlot records whether one expected fact slot for a clause's type was filled.
type ClauseFactSlot struct {
	ClauseID       ClauseID
	FactSpecName   string
	Status         string
	FilledByFactID *FactID
	Required       bool
}

// Binding is a deterministic term -> resolution mapping.
type Binding struct {
	BindingID      BindingID
	DocumentID     DocumentID
	BindingType    string
	Term           string
	ResolvesTo     string
	SourceFactID   FactID
	Scope          string
	IsOverriddenBy *BindingID
}

// Inference is an LM-generated claim, always traceable to at least one supporting Fact.
type Inference struct {
	InferenceID       InferenceID
	DocumentID        DocumentID
	InferenceType     string
	Claim             string
	SupportingFactIDs []FactID
	ReasoningChain    string
	Confidence        float64
	GeneratedBy       string
	GeneratedAt       time.Time
}

// DiscoveryResult is the output of a discovery pass over a document's stored facts.
type DiscoveryResult struct {
	DocumentID DocumentID
	Inferences []Inference
}

// GraphNodeType enumerates the kinds of node that can appear in a Graph.
type GraphNodeType string

// GraphEdgeType enumerates the kinds of edge that can connect two Graph nodes.
type GraphEdgeType string

const (
	GraphNodeFact    GraphNodeType = "fact"
	GraphNodeClause  GraphNodeType = "clause"
	GraphNodeBinding GraphNodeType = "binding"

	GraphEdgeContains         GraphEdgeType = "contains"
	GraphEdgeBindsTo          GraphEdgeType = "binds_to"
	GraphEdgeCrossReferences  GraphEdgeType = "cross_references"
	GraphEdgeFills            GraphEdgeType = "fills"
)

// GraphNode is one fact, clause, or binding rendered as a graph vertex.
type GraphNode struct {
	ID    string
	Type  GraphNodeType
	Label string
}

// GraphEdge connects two GraphNodes by ID.
type GraphEdge struct {
	From string
	To   string
	Type GraphEdgeType
}

// Graph is the get_graph view of a document's TrustGraph (spec §6).
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// ProvenanceNode is one link in the evidence chain backing a QueryResult.
type ProvenanceNode struct {
	NodeType         string
	ReferenceID      string
	Summary          string
	DocumentLocation *string
}

// ProvenanceChain is the ordered evidence trail behind an answer.
type ProvenanceChain struct {
	Nodes            []ProvenanceNode
	ReasoningSummary string
}

// QueryResult is the answer to an ask() call, always carrying its provenance.
type QueryResult struct {
	AnswerType       string
	AnswerText       string
	Confidence       *float64
	CitedFactIDs     []FactID
	CitedBindingIDs  []BindingID
	ReasoningSummary string
	Provenance       ProvenanceChain
	RetrievalMethod  string
	Degraded         bool
}

// AskResult wraps a QueryResult with the session it was recorded under, so a
// caller can pass SessionID back into a later Ask call to continue the
// conversation (spec §6's "ask(query_text, document_ids[], session_id?)").
type AskResult struct {
	QueryResult
	SessionID SessionID
}

// ReasoningSession is one recorded query/answer pair within a workspace.
type ReasoningSession struct {
	SessionID         SessionID
	WorkspaceID       WorkspaceID
	QueryText         string
	Scope             string
	TargetDocumentIDs []DocumentID
	Result            *QueryResult
	Status            string
	StartedAt         time.Time
	CompletedAt       *time.Time
	GenerationTimeMs  *int64
	Stale             bool
}

// Workspace groups a set of contracts under one name for scoped querying.
type Workspace struct {
	WorkspaceID        WorkspaceID
	Name               string
	IndexedDocumentIDs []DocumentID
}

// CheckChangeResult is the outcome of a check_change call.
type CheckChangeResult struct {
	CurrentHash string
	StoredHash  string
	Changed     bool
}
