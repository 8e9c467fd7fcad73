package service

import (
	"context"
	"fmt"
	"time"

	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/unitofwork"
	"ai-gateway-be/pkg/rag"

	"github.com/google/uuid"
)

type IIngestionService interface {
	// IngestDocument chunks the document, replaces any previous chunks for the
	// same source, and queues the embedding job.
	IngestDocument(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
}

type ingestionService struct {
	uowFactory unitofwork.RepositoryFactory
	chunker    *rag.Chunker
	publisher  IPublisherService
	log        logger.ILogger
}

func NewIngestionService(
	uowFactory unitofwork.RepositoryFactory,
	chunker *rag.Chunker,
	publisher IPublisherService,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		uowFactory: uowFactory,
		chunker:    chunker,
		publisher:  publisher,
		log:        log,
	}
}

func (s *ingestionService) IngestDocument(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	texts := s.chunker.Chunk(req.Content)
	if len(texts) == 0 {
		return nil, fmt.Errorf("document produced no usable chunks")
	}

	now := time.Now()
	chunks := make([]*entity.KnowledgeChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &entity.KnowledgeChunk{
			Id:         uuid.New(),
			SourceDoc:  req.SourceDoc,
			ChunkIndex: i,
			Content:    text,
			CreatedAt:  now,
		})
	}

	// Replace-then-insert inside one transaction so a reader never sees the
	// document half-ingested.
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.KnowledgeChunkRepository().DeleteBySourceDoc(ctx, req.SourceDoc); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.KnowledgeChunkRepository().CreateBulk(ctx, chunks); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishEmbedChunks(req.SourceDoc); err != nil {
		s.log.Warn("IngestionService", "failed to queue embedding job", map[string]interface{}{
			"source_doc": req.SourceDoc,
			"error":      err.Error(),
		})
	}

	s.log.Info("IngestionService", "document ingested", map[string]interface{}{
		"source_doc": req.SourceDoc,
		"chunks":     len(chunks),
	})

	return &dto.IngestDocumentResponse{SourceDoc: req.SourceDoc, Chunks: len(chunks)}, nil
}
