package rag

import (
	"context"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/pkg/embedding"
)

// Retriever embeds the query and ranks knowledge chunks by cosine similarity.
// Retrieval is best-effort: when the embedding provider is down the gateway
// still answers, just without grounding context.
type Retriever struct {
	embedder  embedding.EmbeddingProvider
	chunks    contract.KnowledgeChunkRepository
	log       logger.ILogger
	limit     int
	threshold float64
}

func NewRetriever(
	embedder embedding.EmbeddingProvider,
	chunks contract.KnowledgeChunkRepository,
	log logger.ILogger,
	limit int,
	threshold float64,
) *Retriever {
	if limit <= 0 {
		limit = 5
	}
	return &Retriever{
		embedder:  embedder,
		chunks:    chunks,
		log:       log,
		limit:     limit,
		threshold: threshold,
	}
}

// Retrieve returns the best-matching chunks, best first. Embedding failure
// degrades to an empty result rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) []*entity.ScoredChunk {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("Retriever", "query embedding failed, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	scored, err := r.chunks.RankBySimilarity(ctx, vec, r.limit, r.threshold)
	if err != nil {
		r.log.Warn("Retriever", "similarity ranking failed, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return scored
}

// ContextText renders retrieved chunks as a single prompt block, best match
// first.
func ContextText(chunks []*entity.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	out := ""
	for i, sc := range chunks {
		if i > 0 {
			out += "\n\n"
		}
		out += sc.Chunk.Content
	}
	return out
}
