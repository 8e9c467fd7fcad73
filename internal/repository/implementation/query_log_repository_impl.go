package implementation

import (
	"context"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/model"
	"ai-gateway-be/internal/repository/contract"

	"gorm.io/gorm"
)

type QueryLogRepositoryImpl struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) contract.QueryLogRepository {
	return &QueryLogRepositoryImpl{db: db}
}

func (r *QueryLogRepositoryImpl) Create(ctx context.Context, log *entity.QueryLog) error {
	m := &model.QueryLog{
		Id:            log.Id,
		ChatSessionId: log.ChatSessionId,
		Query:         log.Query,
		Response:      log.Response,
		Source:        log.Source,
		Confidence:    log.Confidence,
		LatencyMs:     log.LatencyMs,
		ContextChunks: log.ContextChunks,
		CreatedAt:     log.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(m).Error
}
