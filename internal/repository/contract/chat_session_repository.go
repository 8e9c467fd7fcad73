package contract

import (
	"context"
	"time"

	"ai-gateway-be/internal/entity"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	// GetOrCreate returns the session row, inserting it on first use.
	GetOrCreate(ctx context.Context, sessionId string, userId *uuid.UUID) (*entity.ChatSession, error)
	Touch(ctx context.Context, sessionId string, at time.Time) error
	FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error)
	Delete(ctx context.Context, sessionId string) error
}
