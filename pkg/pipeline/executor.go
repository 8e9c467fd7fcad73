package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/pkg/cache"
	"ai-gateway-be/pkg/events"
	"ai-gateway-be/pkg/fallback"
	"ai-gateway-be/pkg/guardrail"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/rag"

	"golang.org/x/sync/singleflight"
)

const systemPromptTemplate = `You are a helpful assistant. Answer the user's question accurately and concisely.
If reference material is provided below, ground your answer in it.

%s`

// Executor runs one query through the full mediation flow: cache check,
// context retrieval, generation, validation, and confidence-gated fallback.
// Identical in-flight queries are deduplicated so only one reaches the
// providers.
type Executor struct {
	cache     *cache.TieredCache
	retriever *rag.Retriever
	provider  llm.LLMProvider
	scorer    llm.Scorer
	guards    *guardrail.Pipeline
	fallback  *fallback.Client
	emitter   events.Emitter
	log       logger.ILogger

	confidenceFloor float64
	inflight        singleflight.Group
}

type ExecutorConfig struct {
	Cache           *cache.TieredCache
	Retriever       *rag.Retriever
	Provider        llm.LLMProvider
	Scorer          llm.Scorer
	Guards          *guardrail.Pipeline
	Fallback        *fallback.Client
	Emitter         events.Emitter
	Log             logger.ILogger
	ConfidenceFloor float64
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = llm.HeuristicScore
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	floor := cfg.ConfidenceFloor
	if floor <= 0 {
		floor = 0.7
	}
	return &Executor{
		cache:           cfg.Cache,
		retriever:       cfg.Retriever,
		provider:        cfg.Provider,
		scorer:          scorer,
		guards:          cfg.Guards,
		fallback:        cfg.Fallback,
		emitter:         emitter,
		log:             cfg.Log,
		confidenceFloor: floor,
	}
}

// Execute processes a query against its session context window. history must
// already be ordered oldest-first and bounded to the context window. options
// carry per-call provider overrides (model, temperature, token cap).
func (e *Executor) Execute(ctx context.Context, sessionID, query string, history []llm.Message, options ...llm.Option) (*Result, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewError(CodeInvalidInput, "input", fmt.Errorf("empty query"))
	}

	if rejection := e.guards.ValidateQuery(query); rejection != nil {
		e.emitter.Emit(events.NewGuardrailRejectedEvent(sessionID, rejection.Stage, rejection.Code))
		return nil, NewError(CodeUnsafeQuery, rejection.Stage, fmt.Errorf("%s", rejection.Detail))
	}

	fingerprint := cache.Fingerprint(query, renderWindow(history))

	v, err, _ := e.inflight.Do(fingerprint, func() (interface{}, error) {
		return e.resolve(ctx, sessionID, query, fingerprint, history, options)
	})
	if err != nil {
		e.emitter.Emit(events.NewQueryFailedEvent(sessionID, CodeOf(err)))
		return nil, err
	}

	result := v.(*Result)
	// Latency is per-caller; deduplicated followers report their own wait.
	out := *result
	out.Latency = time.Since(started)
	return &out, nil
}

func (e *Executor) resolve(ctx context.Context, sessionID, query, fingerprint string, history []llm.Message, options []llm.Option) (*Result, error) {
	if entry := e.cache.Get(ctx, fingerprint); entry != nil {
		e.emitter.Emit(events.NewCacheHitEvent(sessionID, fingerprint, "any"))
		return &Result{
			Text:        entry.Response,
			Source:      SourceCache,
			Confidence:  metadataConfidence(entry.Metadata),
			Fingerprint: fingerprint,
		}, nil
	}
	e.emitter.Emit(events.NewCacheMissEvent(sessionID, fingerprint))

	chunks := e.retriever.Retrieve(ctx, query)
	contextText := rag.ContextText(chunks)

	genStart := time.Now()
	raw, genErr := e.provider.Chat(ctx, buildMessages(contextText, history, query), options...)
	if genErr != nil {
		e.log.Warn("Pipeline", "generation failed, invoking fallback", map[string]interface{}{
			"session_id": sessionID,
			"error":      genErr.Error(),
		})
		return e.resolveViaFallback(ctx, sessionID, query, fingerprint, contextText, len(chunks),
			"provider_unavailable", NewError(CodeProviderUnavailable, "generation", genErr))
	}

	confidence := e.scorer(query, raw)
	e.emitter.Emit(events.NewGenerationDoneEvent(sessionID, confidence, time.Since(genStart), len(chunks)))

	sanitized, rejection := e.guards.Validate(query, raw)
	if rejection != nil {
		e.emitter.Emit(events.NewGuardrailRejectedEvent(sessionID, rejection.Stage, rejection.Code))
		return e.resolveViaFallback(ctx, sessionID, query, fingerprint, contextText, len(chunks),
			"guardrail_"+rejection.Code, NewError(CodeValidationFailed, rejection.Stage, fmt.Errorf("%s", rejection.Detail)))
	}

	if confidence < e.confidenceFloor {
		// A low-confidence answer is never served as-is: either the secondary
		// service produces a trustworthy one or the request fails.
		return e.resolveViaFallback(ctx, sessionID, query, fingerprint, contextText, len(chunks),
			"low_confidence", nil)
	}

	e.cache.Put(ctx, fingerprint, query, sanitized, map[string]interface{}{
		"confidence": confidence,
		"source":     SourceGeneration,
	})

	return &Result{
		Text:          sanitized,
		Source:        SourceGeneration,
		Confidence:    confidence,
		ContextChunks: len(chunks),
		Fingerprint:   fingerprint,
	}, nil
}

// resolveViaFallback consults the secondary service. onExhausted, when set,
// replaces the generic exhaustion error so the caller's original failure code
// survives; the low-confidence caller passes nil and fails with
// FALLBACK_EXHAUSTED.
func (e *Executor) resolveViaFallback(
	ctx context.Context,
	sessionID, query, fingerprint, contextText string,
	chunksUsed int,
	trigger string,
	onExhausted *PipelineError,
) (*Result, error) {
	fail := func(err error) (*Result, error) {
		if onExhausted != nil {
			return nil, onExhausted
		}
		return nil, NewError(CodeFallbackExhausted, "fallback", err)
	}

	if e.fallback == nil {
		return fail(fmt.Errorf("no fallback service configured"))
	}

	fbResult, err := e.fallback.Query(ctx, query, contextText, nil)
	if err != nil {
		e.log.Error("Pipeline", "fallback exhausted", map[string]interface{}{
			"session_id": sessionID,
			"trigger":    trigger,
			"error":      err.Error(),
		})
		return fail(err)
	}

	sanitized, rejection := e.guards.Validate(query, fbResult.Response)
	if rejection != nil {
		e.emitter.Emit(events.NewGuardrailRejectedEvent(sessionID, rejection.Stage, rejection.Code))
		return nil, NewError(CodeValidationFailed, rejection.Stage,
			fmt.Errorf("fallback response rejected: %s", rejection.Detail))
	}

	e.emitter.Emit(events.NewFallbackUsedEvent(sessionID, trigger, 1))

	confidence := e.scorer(query, sanitized)
	e.cache.Put(ctx, fingerprint, query, sanitized, map[string]interface{}{
		"confidence": confidence,
		"source":     SourceFallback,
	})

	return &Result{
		Text:          sanitized,
		Source:        SourceFallback,
		Confidence:    confidence,
		ContextChunks: chunksUsed,
		Fingerprint:   fingerprint,
	}, nil
}

// buildMessages assembles the provider chat history: system prompt with any
// retrieved context, the session window, then the current query.
func buildMessages(contextText string, history []llm.Message, query string) []llm.Message {
	block := "No reference material available."
	if contextText != "" {
		block = "Reference material:\n" + contextText
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptTemplate, block),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

// renderWindow flattens the context window into the canonical text that feeds
// the fingerprint. Same window, same bytes.
func renderWindow(history []llm.Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func metadataConfidence(metadata map[string]interface{}) float64 {
	if metadata == nil {
		return 1.0
	}
	switch v := metadata["confidence"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return 1.0
	}
}
