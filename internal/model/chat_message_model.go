package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId string    `gorm:"type:varchar(128);not null;index"`
	Role          string    `gorm:"type:varchar(16);not null"`
	Content       string    `gorm:"type:text"`
	Source        string    `gorm:"type:varchar(16)"`
	Confidence    float64
	LatencyMs     int64
	ContextChunks int
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
