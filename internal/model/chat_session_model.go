package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id         string     `gorm:"type:varchar(128);primaryKey"` // externally supplied session identifier
	UserId     *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	LastSeenAt time.Time
	UpdatedAt  *time.Time     `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
