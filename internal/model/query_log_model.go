package model

import (
	"time"

	"github.com/google/uuid"
)

type QueryLog struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId string    `gorm:"type:varchar(128);index"`
	Query         string    `gorm:"type:text"`
	Response      string    `gorm:"type:text"`
	Source        string    `gorm:"type:varchar(16);index"`
	Confidence    float64
	LatencyMs     int64
	ContextChunks int
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}
