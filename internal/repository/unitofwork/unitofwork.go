package unitofwork

import (
	"context"

	"ai-gateway-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	QueryLogRepository() contract.QueryLogRepository
	KnowledgeChunkRepository() contract.KnowledgeChunkRepository
}
