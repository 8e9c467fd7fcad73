package pipeline

import "time"

// Answer sources, recorded on messages, query logs, and results.
const (
	SourceCache      = "cache"
	SourceGeneration = "generation"
	SourceFallback   = "fallback"
)

// Result is the successful outcome of one query through the pipeline.
type Result struct {
	Text          string
	Source        string
	Confidence    float64
	Latency       time.Duration
	ContextChunks int
	Fingerprint   string
}
