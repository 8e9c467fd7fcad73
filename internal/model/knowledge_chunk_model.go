package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KnowledgeChunk struct {
	Id          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceDoc   string           `gorm:"type:varchar(255);not null;index"`
	ChunkIndex  int              `gorm:"default:0"` // 0-based index for ordering
	Content     string           `gorm:"type:text"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	Metadata    datatypes.JSON
	ProcessedAt *time.Time
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
