package model

// ChunkType enumerates the provenance of an embedding index chunk (spec §4.6).
type ChunkType string

const (
	ChunkTypeFact    ChunkType = "fact"
	ChunkTypeClause  ChunkType = "clause"
	ChunkTypeBinding ChunkType = "binding"
)

// Chunk is one unit of retrievable text stored in a document's embedding index.
type Chunk struct {
	ChunkID      ChunkID
	DocumentID   DocumentID
	ChunkType    ChunkType
	SourceFactID FactID
	Text         string
}

// SearchHit is one ranked result of EmbeddingIndex.search (spec §4.6).
type SearchHit struct {
	ChunkID      ChunkID
	SourceFactID FactID
	DocumentID   DocumentID
	Score        float64
}
