package contract

import (
	"context"
	"time"

	"ai-gateway-be/internal/entity"

	"github.com/google/uuid"
)

type KnowledgeChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error
	// DeleteBySourceDoc removes all chunks of a document (reprocessing is
	// delete-then-reinsert).
	DeleteBySourceDoc(ctx context.Context, sourceDoc string) error
	// FindWithoutEmbedding lists unprocessed chunks; sourceDoc narrows the scan
	// when non-empty.
	FindWithoutEmbedding(ctx context.Context, sourceDoc string) ([]*entity.KnowledgeChunk, error)
	SetEmbedding(ctx context.Context, chunkId uuid.UUID, embedding []float32, processedAt time.Time) error
	// RankBySimilarity returns chunks ordered best-first by cosine similarity to
	// the query vector, dropping anything below threshold. Chunks without an
	// embedding never rank.
	RankBySimilarity(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]*entity.ScoredChunk, error)
}
