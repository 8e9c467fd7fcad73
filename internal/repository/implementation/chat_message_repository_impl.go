package implementation

import (
	"context"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/mapper"
	"ai-gateway-be/internal/model"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	models, err := r.findModels(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	// Reverse to oldest-first for replay into a session worker
	messages := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		messages[len(models)-1-i] = r.mapper.MessageToEntity(m)
	}
	return messages, nil
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	models, err := r.findModels(ctx, specs...)
	if err != nil {
		return nil, err
	}
	messages := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		messages[i] = r.mapper.MessageToEntity(m)
	}
	return messages, nil
}

func (r *ChatMessageRepositoryImpl) findModels(ctx context.Context, specs ...specification.Specification) ([]*model.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}
