package contract

import (
	"context"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/repository/specification"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	// FindRecent returns up to limit messages for the session, oldest first.
	FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
}
