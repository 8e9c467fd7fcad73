package unitofwork

import (
	"context"
	"fmt"

	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type unitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB

	chatSessionRepo    contract.ChatSessionRepository
	chatMessageRepo    contract.ChatMessageRepository
	queryLogRepo       contract.QueryLogRepository
	knowledgeChunkRepo contract.KnowledgeChunkRepository
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWorkImpl{db: db}
}

// handle returns the transaction when one is open, the shared DB otherwise.
func (u *unitOfWorkImpl) handle() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *unitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	u.resetRepos()
	return nil
}

func (u *unitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	u.resetRepos()
	return err
}

func (u *unitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	u.resetRepos()
	return err
}

func (u *unitOfWorkImpl) resetRepos() {
	u.chatSessionRepo = nil
	u.chatMessageRepo = nil
	u.queryLogRepo = nil
	u.knowledgeChunkRepo = nil
}

func (u *unitOfWorkImpl) ChatSessionRepository() contract.ChatSessionRepository {
	if u.chatSessionRepo == nil {
		u.chatSessionRepo = implementation.NewChatSessionRepository(u.handle())
	}
	return u.chatSessionRepo
}

func (u *unitOfWorkImpl) ChatMessageRepository() contract.ChatMessageRepository {
	if u.chatMessageRepo == nil {
		u.chatMessageRepo = implementation.NewChatMessageRepository(u.handle())
	}
	return u.chatMessageRepo
}

func (u *unitOfWorkImpl) QueryLogRepository() contract.QueryLogRepository {
	if u.queryLogRepo == nil {
		u.queryLogRepo = implementation.NewQueryLogRepository(u.handle())
	}
	return u.queryLogRepo
}

func (u *unitOfWorkImpl) KnowledgeChunkRepository() contract.KnowledgeChunkRepository {
	if u.knowledgeChunkRepo == nil {
		u.knowledgeChunkRepo = implementation.NewKnowledgeChunkRepository(u.handle())
	}
	return u.knowledgeChunkRepo
}
