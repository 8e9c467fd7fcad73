package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one conversation turn. Immutable once created; the owning
// session worker is the only writer.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId string
	Role          string
	Content       string
	Source        string // "cache" | "generation" | "fallback", empty for user turns
	Confidence    float64
	LatencyMs     int64
	ContextChunks int
	CreatedAt     time.Time
}
