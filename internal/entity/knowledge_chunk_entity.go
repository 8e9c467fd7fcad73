package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeChunk is one retrievable unit of the knowledge corpus.
// Embedding stays nil until the background embedding job processes it.
type KnowledgeChunk struct {
	Id          uuid.UUID
	SourceDoc   string
	ChunkIndex  int
	Content     string
	Embedding   []float32
	Metadata    map[string]interface{}
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// ScoredChunk pairs a chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk      *KnowledgeChunk
	Similarity float64
}
