package implementation

import (
	"context"
	"errors"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/mapper"
	"ai-gateway-be/internal/model"
	"ai-gateway-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) GetOrCreate(ctx context.Context, sessionId string, userId *uuid.UUID) (*entity.ChatSession, error) {
	now := time.Now()
	m := &model.ChatSession{
		Id:         sessionId,
		UserId:     userId,
		LastSeenAt: now,
	}

	// Insert-if-absent keeps concurrent first access safe. The conflict clause
	// also revives a soft-deleted row, so a closed session can be reopened.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deleted_at":   nil,
				"last_seen_at": now,
			}),
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}

	var found model.ChatSession
	if err := r.db.WithContext(ctx).First(&found, "id = ?", sessionId).Error; err != nil {
		return nil, err
	}
	return r.mapper.SessionToEntity(&found), nil
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, sessionId string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ?", sessionId).
		Update("last_seen_at", at).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	var m model.ChatSession
	if err := r.db.WithContext(ctx).First(&m, "id = ?", sessionId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).Delete(&model.ChatSession{}, "id = ?", sessionId).Error
}
