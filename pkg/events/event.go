package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a telemetry record emitted at pipeline milestones. Emission is
// fire-and-forget; no pipeline decision ever depends on an event landing.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func newBase(eventType, sessionID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	}
}

const (
	TypeCacheHit          = "cache.hit"
	TypeCacheMiss         = "cache.miss"
	TypeGenerationDone    = "generation.done"
	TypeGuardrailRejected = "guardrail.rejected"
	TypeFallbackUsed      = "fallback.used"
	TypeQueryFailed       = "query.failed"
)

type CacheHitEvent struct {
	BaseEvent
	Fingerprint string `json:"fingerprint"`
	Tier        string `json:"tier"`
}

func NewCacheHitEvent(sessionID, fingerprint, tier string) CacheHitEvent {
	return CacheHitEvent{BaseEvent: newBase(TypeCacheHit, sessionID), Fingerprint: fingerprint, Tier: tier}
}

type CacheMissEvent struct {
	BaseEvent
	Fingerprint string `json:"fingerprint"`
}

func NewCacheMissEvent(sessionID, fingerprint string) CacheMissEvent {
	return CacheMissEvent{BaseEvent: newBase(TypeCacheMiss, sessionID), Fingerprint: fingerprint}
}

type GenerationDoneEvent struct {
	BaseEvent
	Confidence float64 `json:"confidence"`
	LatencyMs  int64   `json:"latency_ms"`
	ChunksUsed int     `json:"chunks_used"`
}

func NewGenerationDoneEvent(sessionID string, confidence float64, latency time.Duration, chunksUsed int) GenerationDoneEvent {
	return GenerationDoneEvent{
		BaseEvent:  newBase(TypeGenerationDone, sessionID),
		Confidence: confidence,
		LatencyMs:  latency.Milliseconds(),
		ChunksUsed: chunksUsed,
	}
}

type GuardrailRejectedEvent struct {
	BaseEvent
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

func NewGuardrailRejectedEvent(sessionID, stage, reason string) GuardrailRejectedEvent {
	return GuardrailRejectedEvent{BaseEvent: newBase(TypeGuardrailRejected, sessionID), Stage: stage, Reason: reason}
}

type FallbackUsedEvent struct {
	BaseEvent
	Trigger  string `json:"trigger"`
	Attempts int    `json:"attempts"`
}

func NewFallbackUsedEvent(sessionID, trigger string, attempts int) FallbackUsedEvent {
	return FallbackUsedEvent{BaseEvent: newBase(TypeFallbackUsed, sessionID), Trigger: trigger, Attempts: attempts}
}

type QueryFailedEvent struct {
	BaseEvent
	Code string `json:"code"`
}

func NewQueryFailedEvent(sessionID, code string) QueryFailedEvent {
	return QueryFailedEvent{BaseEvent: newBase(TypeQueryFailed, sessionID), Code: code}
}

// Emitter publishes events to whatever telemetry sink is configured.
type Emitter interface {
	Emit(event Event)
}

// NopEmitter drops every event. Used when no telemetry sink is configured
// and in tests.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
