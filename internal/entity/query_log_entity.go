package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueryLog is one audit row per processed query.
type QueryLog struct {
	Id            uuid.UUID
	ChatSessionId string
	Query         string
	Response      string
	Source        string
	Confidence    float64
	LatencyMs     int64
	ContextChunks int
	CreatedAt     time.Time
}
