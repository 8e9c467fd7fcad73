package main

import (
	"context"
	"log"
	"os"
	"time"

	"ai-gateway-be/internal/config"
	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/repository/unitofwork"
	"ai-gateway-be/pkg/database"
	"ai-gateway-be/pkg/embedding"
	"ai-gateway-be/pkg/embedding/jina"
	"ai-gateway-be/pkg/rag"

	"github.com/google/uuid"
)

// Ingests a document from disk and embeds its chunks inline, so the corpus is
// queryable as soon as this command exits.
//
// Usage: ingest <source-doc-name> <file-path>
func main() {
	if len(os.Args) != 3 {
		log.Fatal("Usage: ingest <source-doc-name> <file-path>")
	}
	sourceDoc := os.Args[1]
	filePath := os.Args[2]

	cfg := config.Load()

	content, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("Error: failed to read %s: %v", filePath, err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error: failed to connect to database: %v", err)
	}

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaKey)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbedModel)
	}

	chunker := rag.NewChunker(cfg.Retrieval.ChunkSentences, cfg.Retrieval.ChunkOverlap, cfg.Retrieval.MinChunkLength)
	texts := chunker.Chunk(string(content))
	if len(texts) == 0 {
		log.Fatal("Error: document produced no usable chunks")
	}
	log.Printf("Chunked %s into %d chunks", sourceDoc, len(texts))

	ctx := context.Background()
	now := time.Now()

	chunks := make([]*entity.KnowledgeChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &entity.KnowledgeChunk{
			Id:         uuid.New(),
			SourceDoc:  sourceDoc,
			ChunkIndex: i,
			Content:    text,
			CreatedAt:  now,
		})
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	uow := uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Fatalf("Error: failed to begin transaction: %v", err)
	}
	if err := uow.KnowledgeChunkRepository().DeleteBySourceDoc(ctx, sourceDoc); err != nil {
		uow.Rollback()
		log.Fatalf("Error: failed to delete old chunks: %v", err)
	}
	if err := uow.KnowledgeChunkRepository().CreateBulk(ctx, chunks); err != nil {
		uow.Rollback()
		log.Fatalf("Error: failed to insert chunks: %v", err)
	}
	if err := uow.Commit(); err != nil {
		log.Fatalf("Error: failed to commit: %v", err)
	}

	// Embed inline; there is no background consumer in this one-shot command.
	chunkRepo := uowFactory.NewUnitOfWork(ctx).KnowledgeChunkRepository()
	embedded := 0
	for _, chunk := range chunks {
		vec, err := embeddingProvider.Embed(ctx, chunk.Content)
		if err != nil {
			log.Printf("Warn: embedding failed for chunk %d: %v", chunk.ChunkIndex, err)
			continue
		}
		if err := chunkRepo.SetEmbedding(ctx, chunk.Id, vec, time.Now()); err != nil {
			log.Printf("Warn: failed to store embedding for chunk %d: %v", chunk.ChunkIndex, err)
			continue
		}
		embedded++
	}

	log.Printf("Done: %d/%d chunks embedded for %s", embedded, len(chunks), sourceDoc)
}
