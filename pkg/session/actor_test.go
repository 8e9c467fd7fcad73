package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/specification"
	"ai-gateway-be/pkg/cache"
	"ai-gateway-be/pkg/guardrail"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/pipeline"
	"ai-gateway-be/pkg/rag"

	"github.com/google/uuid"
)

type fakeSessionRepo struct {
	mu      sync.Mutex
	touched int
}

func (f *fakeSessionRepo) GetOrCreate(ctx context.Context, sessionId string, userId *uuid.UUID) (*entity.ChatSession, error) {
	return &entity.ChatSession{Id: sessionId}, nil
}

func (f *fakeSessionRepo) Touch(ctx context.Context, sessionId string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

func (f *fakeSessionRepo) FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	return &entity.ChatSession{Id: sessionId}, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, sessionId string) error { return nil }

type fakeMessageRepo struct {
	mu      sync.Mutex
	seeded  []*entity.ChatMessage
	created []*entity.ChatMessage
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, message)
	return nil
}

func (f *fakeMessageRepo) FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeded) > limit {
		return f.seeded[len(f.seeded)-limit:], nil
	}
	return f.seeded, nil
}

func (f *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeQueryLogRepo struct {
	mu   sync.Mutex
	logs []*entity.QueryLog
}

func (f *fakeQueryLogRepo) Create(ctx context.Context, log *entity.QueryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

// serialProvider fails the test if two calls ever overlap, and records the
// history length of each call.
type serialProvider struct {
	t        *testing.T
	inFlight atomic.Int32
	histLens []int
	mu       sync.Mutex
	delay    time.Duration
}

func (p *serialProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if p.inFlight.Add(1) > 1 {
		p.t.Error("provider called concurrently within one session")
	}
	defer p.inFlight.Add(-1)

	p.mu.Lock()
	p.histLens = append(p.histLens, len(history))
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return fmt.Sprintf("An answer to that question with history length %d.", len(history)), nil
}

func (p *serialProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

type actorEnv struct {
	sessions *fakeSessionRepo
	messages *fakeMessageRepo
	queryLog *fakeQueryLogRepo
	provider *serialProvider
}

func newActorEnv(t *testing.T) *actorEnv {
	return &actorEnv{
		sessions: &fakeSessionRepo{},
		messages: &fakeMessageRepo{},
		queryLog: &fakeQueryLogRepo{},
		provider: &serialProvider{t: t},
	}
}

func (env *actorEnv) newExecutor() *pipeline.Executor {
	nop := logger.NewNopLogger()
	return pipeline.NewExecutor(pipeline.ExecutorConfig{
		Cache:     cache.NewTieredCache(cache.NewFastCache(64, time.Minute), nil, nop, time.Minute, time.Hour),
		Retriever: rag.NewRetriever(fakeEmbedder{}, &fakeChunkRepo{}, nop, 5, 0.35),
		Provider:  env.provider,
		Scorer:    func(query, response string) float64 { return 0.9 },
		Guards:    guardrail.NewPipeline(guardrail.Options{}),
		Emitter:   nil,
		Log:       nop,
	})
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type fakeChunkRepo struct{}

func (fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error { return nil }
func (fakeChunkRepo) DeleteBySourceDoc(ctx context.Context, sourceDoc string) error         { return nil }
func (fakeChunkRepo) FindWithoutEmbedding(ctx context.Context, sourceDoc string) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}
func (fakeChunkRepo) SetEmbedding(ctx context.Context, chunkId uuid.UUID, embedding []float32, processedAt time.Time) error {
	return nil
}
func (fakeChunkRepo) RankBySimilarity(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (env *actorEnv) startActor(t *testing.T, cfg ActorConfig) *Actor {
	t.Helper()
	cfg.SessionID = "s1"
	cfg.Executor = env.newExecutor()
	cfg.Sessions = env.sessions
	cfg.Messages = env.messages
	cfg.QueryLog = env.queryLog
	cfg.Log = logger.NewNopLogger()
	actor := NewActor(cfg)
	if err := actor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return actor
}

func TestActorSerializesQueries(t *testing.T) {
	env := newActorEnv(t)
	env.provider.delay = 10 * time.Millisecond
	actor := env.startActor(t, ActorConfig{MailboxSize: 32})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct queries so caching and dedup do not collapse the calls.
			if _, err := actor.Ask(context.Background(), fmt.Sprintf("question number %d please", i)); err != nil {
				t.Errorf("Ask(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// 8 user turns + 8 assistant turns persisted.
	if got := env.messages.createdCount(); got != 16 {
		t.Errorf("persisted messages = %d, want 16", got)
	}
}

func TestActorBoundedMailbox(t *testing.T) {
	env := newActorEnv(t)
	env.provider.delay = 200 * time.Millisecond
	actor := env.startActor(t, ActorConfig{MailboxSize: 1})

	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			_, err := actor.Ask(context.Background(), fmt.Sprintf("flood question %d now", i))
			results <- err
		}(i)
	}

	busy := 0
	for i := 0; i < 8; i++ {
		if err := <-results; err != nil {
			if pipeline.CodeOf(err) != pipeline.CodeSessionBusy {
				t.Errorf("unexpected error: %v", err)
			}
			busy++
		}
	}
	if busy == 0 {
		t.Error("expected at least one rejection from the full mailbox")
	}
}

func TestActorContextWindowBound(t *testing.T) {
	env := newActorEnv(t)
	// Seed ten persisted turns; window of 4 must cap what the provider sees.
	for i := 0; i < 10; i++ {
		env.messages.seeded = append(env.messages.seeded, &entity.ChatMessage{
			Role:    entity.RoleUser,
			Content: fmt.Sprintf("old turn %d", i),
		})
	}
	actor := env.startActor(t, ActorConfig{ContextWindow: 4, HistoryLimit: 50})

	if _, err := actor.Ask(context.Background(), "a fresh question now"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	env.provider.mu.Lock()
	defer env.provider.mu.Unlock()
	if len(env.provider.histLens) != 1 {
		t.Fatalf("provider calls = %d", len(env.provider.histLens))
	}
	// system prompt + 4 window turns + current query
	if got := env.provider.histLens[0]; got != 6 {
		t.Errorf("messages sent to provider = %d, want 6", got)
	}
}

func TestActorIdleShutdown(t *testing.T) {
	env := newActorEnv(t)
	actor := env.startActor(t, ActorConfig{IdleTimeout: 30 * time.Millisecond})

	deadline := time.After(time.Second)
	for !actor.Stopped() {
		select {
		case <-deadline:
			t.Fatal("actor did not stop after idle timeout")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, err := actor.Ask(context.Background(), "too late now friend"); err == nil {
		t.Error("stopped actor must reject new queries")
	}
}

func TestActorExplicitStop(t *testing.T) {
	env := newActorEnv(t)
	actor := env.startActor(t, ActorConfig{})

	actor.Stop()
	actor.Stop() // idempotent

	deadline := time.After(time.Second)
	for !actor.Stopped() {
		select {
		case <-deadline:
			t.Fatal("actor did not stop after Stop")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := actor.Ask(context.Background(), "a question after close"); err == nil {
		t.Error("closed actor must reject new queries")
	}
}

func TestActorStoppedFailsCallersPromptly(t *testing.T) {
	env := newActorEnv(t)
	actor := env.startActor(t, ActorConfig{})

	actor.Stop()
	deadline := time.After(time.Second)
	for !actor.Stopped() {
		select {
		case <-deadline:
			t.Fatal("actor did not stop after Stop")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The buffered mailbox stays sendable after shutdown, so a request can
	// land in the dead queue; the caller must still get an error instead of
	// waiting on a response that will never come.
	results := make(chan error, 40)
	for i := 0; i < 40; i++ {
		go func(i int) {
			_, err := actor.Ask(context.Background(), fmt.Sprintf("question %d after shutdown", i))
			results <- err
		}(i)
	}

	timeout := time.After(2 * time.Second)
	for i := 0; i < 40; i++ {
		select {
		case err := <-results:
			if pipeline.CodeOf(err) != pipeline.CodeSessionTimeout {
				t.Errorf("err = %v, want %s", err, pipeline.CodeSessionTimeout)
			}
		case <-timeout:
			t.Fatal("Ask on a stopped actor never returned")
		}
	}
}

func TestActorStreamsTokens(t *testing.T) {
	env := newActorEnv(t)
	actor := env.startActor(t, ActorConfig{})

	var mu sync.Mutex
	var streamed string
	result, err := actor.AskStream(context.Background(), "please stream this question", func(token string) {
		mu.Lock()
		streamed += token
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if streamed != result.Text {
		t.Errorf("streamed %q != final %q", streamed, result.Text)
	}
}

func TestRegistryReturnsSameActor(t *testing.T) {
	env := newActorEnv(t)
	registry := NewRegistry(RegistryConfig{
		Executor: env.newExecutor(),
		Sessions: env.sessions,
		Messages: env.messages,
		QueryLog: env.queryLog,
		Log:      logger.NewNopLogger(),
	})
	ctx := context.Background()

	a1, err := registry.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	a2, err := registry.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a1 != a2 {
		t.Error("same session id must map to the same actor")
	}

	b, err := registry.GetOrCreate(ctx, "s2")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if b == a1 {
		t.Error("different sessions must get different actors")
	}
	if registry.Len() != 2 {
		t.Errorf("Len = %d, want 2", registry.Len())
	}
}

func TestRegistryReplacesStoppedActor(t *testing.T) {
	env := newActorEnv(t)
	registry := NewRegistry(RegistryConfig{
		Executor:    env.newExecutor(),
		Sessions:    env.sessions,
		Messages:    env.messages,
		QueryLog:    env.queryLog,
		Log:         logger.NewNopLogger(),
		IdleTimeout: 20 * time.Millisecond,
	})
	ctx := context.Background()

	a1, err := registry.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	deadline := time.After(time.Second)
	for !a1.Stopped() {
		select {
		case <-deadline:
			t.Fatal("actor did not stop after idle timeout")
		case <-time.After(5 * time.Millisecond):
		}
	}

	a2, err := registry.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a2 == a1 {
		t.Error("stopped actor must be replaced, not reused")
	}
	if a2.Stopped() {
		t.Error("replacement actor should be live")
	}
}
