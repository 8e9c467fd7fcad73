package contract

import (
	"context"

	"ai-gateway-be/internal/entity"
)

type QueryLogRepository interface {
	Create(ctx context.Context, log *entity.QueryLog) error
}
