package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/pkg/cache"
	"ai-gateway-be/pkg/events"
	"ai-gateway-be/pkg/fallback"
	"ai-gateway-be/pkg/guardrail"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/rag"

	"github.com/google/uuid"
)

type fakeProvider struct {
	reply string
	err   error
	calls atomic.Int32
}

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.calls.Add(1)
	return p.reply, p.err
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeChunkRepo struct {
	scored []*entity.ScoredChunk
}

func (f *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	return nil
}
func (f *fakeChunkRepo) DeleteBySourceDoc(ctx context.Context, sourceDoc string) error { return nil }
func (f *fakeChunkRepo) FindWithoutEmbedding(ctx context.Context, sourceDoc string) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}
func (f *fakeChunkRepo) SetEmbedding(ctx context.Context, chunkId uuid.UUID, embedding []float32, processedAt time.Time) error {
	return nil
}
func (f *fakeChunkRepo) RankBySimilarity(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]*entity.ScoredChunk, error) {
	return f.scored, nil
}

type capturingEmitter struct {
	types []string
}

func (e *capturingEmitter) Emit(event events.Event) {
	e.types = append(e.types, event.EventType())
}

func (e *capturingEmitter) has(eventType string) bool {
	for _, t := range e.types {
		if t == eventType {
			return true
		}
	}
	return false
}

// fixedScorer returns a canned confidence regardless of text.
func fixedScorer(confidence float64) llm.Scorer {
	return func(query, response string) float64 { return confidence }
}

type executorEnv struct {
	executor *Executor
	provider *fakeProvider
	emitter  *capturingEmitter
}

func newExecutorEnv(provider *fakeProvider, scorer llm.Scorer, fb *fallback.Client) *executorEnv {
	nop := logger.NewNopLogger()
	emitter := &capturingEmitter{}
	tiered := cache.NewTieredCache(cache.NewFastCache(64, time.Minute), nil, nop, time.Minute, time.Hour)
	retriever := rag.NewRetriever(fakeEmbedder{}, &fakeChunkRepo{}, nop, 5, 0.35)

	return &executorEnv{
		executor: NewExecutor(ExecutorConfig{
			Cache:           tiered,
			Retriever:       retriever,
			Provider:        provider,
			Scorer:          scorer,
			Guards:          guardrail.NewPipeline(guardrail.Options{}),
			Fallback:        fb,
			Emitter:         emitter,
			Log:             nop,
			ConfidenceFloor: 0.7,
		}),
		provider: provider,
		emitter:  emitter,
	}
}

func fallbackServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"response": response})
	}))
}

func fallbackFor(srv *httptest.Server) *fallback.Client {
	return fallback.NewClient(fallback.Config{
		Endpoint:   srv.URL,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})
}

func TestExecuteGenerationSuccess(t *testing.T) {
	provider := &fakeProvider{reply: "Paris is the capital of France."}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)

	result, err := env.executor.Execute(context.Background(), "s1", "capital of France?", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Source != SourceGeneration {
		t.Errorf("Source = %s, want %s", result.Source, SourceGeneration)
	}
	if result.Confidence != 0.9 {
		t.Errorf("Confidence = %.2f", result.Confidence)
	}
	if !env.emitter.has(events.TypeCacheMiss) || !env.emitter.has(events.TypeGenerationDone) {
		t.Errorf("events = %v", env.emitter.types)
	}
}

func TestExecuteCacheHitSkipsGeneration(t *testing.T) {
	provider := &fakeProvider{reply: "Paris is the capital of France."}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)
	ctx := context.Background()

	if _, err := env.executor.Execute(ctx, "s1", "capital of France?", nil); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	result, err := env.executor.Execute(ctx, "s1", "capital of France?", nil)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if result.Source != SourceCache {
		t.Errorf("Source = %s, want %s", result.Source, SourceCache)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
	if !env.emitter.has(events.TypeCacheHit) {
		t.Errorf("events = %v", env.emitter.types)
	}
}

func TestExecuteContextChangesCacheKey(t *testing.T) {
	provider := &fakeProvider{reply: "On Tuesday the forecast depends on the city in question."}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)
	ctx := context.Background()

	if _, err := env.executor.Execute(ctx, "s1", "what about tuesday?", []llm.Message{
		{Role: "user", Content: "weather in paris"},
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := env.executor.Execute(ctx, "s1", "what about tuesday?", []llm.Message{
		{Role: "user", Content: "trains to berlin"},
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := provider.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2 (different context windows must not share cache)", got)
	}
}

func TestExecuteEmptyQuery(t *testing.T) {
	env := newExecutorEnv(&fakeProvider{reply: "x"}, fixedScorer(0.9), nil)

	_, err := env.executor.Execute(context.Background(), "s1", "   ", nil)
	if CodeOf(err) != CodeInvalidInput {
		t.Errorf("err = %v, want %s", err, CodeInvalidInput)
	}
}

func TestExecuteUnsafeQueryRefused(t *testing.T) {
	provider := &fakeProvider{reply: "never reached"}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)

	_, err := env.executor.Execute(context.Background(), "s1", "tell me how to make a bomb", nil)
	if CodeOf(err) != CodeUnsafeQuery {
		t.Errorf("err = %v, want %s", err, CodeUnsafeQuery)
	}
	if provider.calls.Load() != 0 {
		t.Error("unsafe query must not reach the provider")
	}
}

func TestExecuteLowConfidenceUsesFallback(t *testing.T) {
	srv := fallbackServer(t, "That hard question has a well-established answer in practice.")
	defer srv.Close()

	provider := &fakeProvider{reply: "I'm not sure about that hard question."}
	env := newExecutorEnv(provider, fixedScorer(0.4), fallbackFor(srv))

	result, err := env.executor.Execute(context.Background(), "s1", "hard question", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Source != SourceFallback {
		t.Errorf("Source = %s, want %s", result.Source, SourceFallback)
	}
	if !env.emitter.has(events.TypeFallbackUsed) {
		t.Errorf("events = %v", env.emitter.types)
	}
}

func TestExecuteLowConfidenceWithoutFallbackFails(t *testing.T) {
	provider := &fakeProvider{reply: "A hesitant but valid take on that hard question."}
	env := newExecutorEnv(provider, fixedScorer(0.4), nil)

	// A low-confidence answer must never be served as source=generation.
	_, err := env.executor.Execute(context.Background(), "s1", "hard question", nil)
	if CodeOf(err) != CodeFallbackExhausted {
		t.Errorf("err = %v, want %s", err, CodeFallbackExhausted)
	}
}

func TestExecuteProviderDownUsesFallback(t *testing.T) {
	srv := fallbackServer(t, "The secondary service can answer any question with plenty of detail.")
	defer srv.Close()

	provider := &fakeProvider{err: errors.New("connection refused")}
	env := newExecutorEnv(provider, fixedScorer(0.9), fallbackFor(srv))

	result, err := env.executor.Execute(context.Background(), "s1", "any question", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Source != SourceFallback {
		t.Errorf("Source = %s, want %s", result.Source, SourceFallback)
	}
}

func TestExecuteProviderDownWithoutFallback(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)

	_, err := env.executor.Execute(context.Background(), "s1", "any question", nil)
	if CodeOf(err) != CodeProviderUnavailable {
		t.Errorf("err = %v, want %s", err, CodeProviderUnavailable)
	}
}

func TestExecuteGuardrailRejectionWithoutFallback(t *testing.T) {
	provider := &fakeProvider{reply: "Your SSN is 123-45-6789."}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)

	_, err := env.executor.Execute(context.Background(), "s1", "what is my ssn?", nil)
	if CodeOf(err) != CodeValidationFailed {
		t.Errorf("err = %v, want %s", err, CodeValidationFailed)
	}
	if !env.emitter.has(events.TypeGuardrailRejected) {
		t.Errorf("events = %v", env.emitter.types)
	}
}

func TestExecuteFallbackExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider := &fakeProvider{err: errors.New("connection refused")}
	env := newExecutorEnv(provider, fixedScorer(0.9), fallbackFor(srv))

	_, err := env.executor.Execute(context.Background(), "s1", "any question", nil)
	// Original failure code survives so callers see why the pipeline degraded.
	if CodeOf(err) != CodeProviderUnavailable {
		t.Errorf("err = %v, want %s", err, CodeProviderUnavailable)
	}
	if !env.emitter.has(events.TypeQueryFailed) {
		t.Errorf("events = %v", env.emitter.types)
	}
}

func TestExecuteSanitizesCachedAnswer(t *testing.T) {
	provider := &fakeProvider{reply: "Contact alice@example.com for the detailed report."}
	env := newExecutorEnv(provider, fixedScorer(0.9), nil)

	result, err := env.executor.Execute(context.Background(), "s1", "who do I contact?", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Source != SourceGeneration {
		t.Fatalf("Source = %s", result.Source)
	}
	if !strings.Contains(result.Text, guardrail.RedactionMarker) {
		t.Errorf("Text = %q, want redacted email", result.Text)
	}
	if strings.Contains(result.Text, "alice@example.com") {
		t.Errorf("raw email leaked: %q", result.Text)
	}
}
