package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         string
	UserId     *uuid.UUID
	CreatedAt  time.Time
	LastSeenAt time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
