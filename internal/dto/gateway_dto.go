package dto

import "time"

type QueryRequest struct {
	SessionId string          `json:"session_id" validate:"required,max=128"`
	Query     string          `json:"query" validate:"required,max=8000"`
	Overrides *QueryOverrides `json:"overrides,omitempty"`
}

// QueryOverrides are per-call generation settings; unset fields keep the
// provider defaults.
type QueryOverrides struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int      `json:"max_tokens,omitempty" validate:"omitempty,gte=0"`
}

type QueryResponse struct {
	Response      string  `json:"response"`
	Source        string  `json:"source"`
	Confidence    float64 `json:"confidence"`
	LatencyMs     int64   `json:"latency_ms"`
	ContextChunks int     `json:"context_chunks"`
}

type HistoryMessage struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Source     string    `json:"source,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type HistoryResponse struct {
	SessionId string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

type CacheStatsResponse struct {
	ActiveEntries int64 `json:"active_entries"`
}
