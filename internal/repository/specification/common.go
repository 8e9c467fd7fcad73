package specification

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ByChatSessionID filters by the owning chat session
type ByChatSessionID struct {
	ChatSessionID string
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// BySourceDoc filters knowledge chunks by their source document
type BySourceDoc struct {
	SourceDoc string
}

func (s BySourceDoc) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_doc = ?", s.SourceDoc)
}

// WithoutEmbedding selects chunks not yet processed by the embedding job
type WithoutEmbedding struct{}

func (s WithoutEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

// ExpiredBefore selects rows whose expiry has passed
type ExpiredBefore struct {
	At time.Time
}

func (s ExpiredBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at < ?", s.At)
}
