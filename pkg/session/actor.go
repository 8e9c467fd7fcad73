package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/pipeline"

	"github.com/google/uuid"
)

// TokenSink receives response fragments as they become available during a
// streaming query. Implementations must tolerate being called from the
// actor goroutine.
type TokenSink func(token string)

type queryRequest struct {
	ctx     context.Context
	query   string
	options []llm.Option
	sink    TokenSink
	respCh  chan queryResponse
}

type queryResponse struct {
	result *pipeline.Result
	err    error
}

// Actor owns one conversation. All queries for a session funnel through its
// single goroutine, so history reads and writes never race and turns stay
// strictly ordered. The mailbox is bounded; a full mailbox rejects instead of
// blocking the caller forever.
type Actor struct {
	sessionID string
	mailbox   chan queryRequest
	done      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once

	executor *pipeline.Executor
	sessions contract.ChatSessionRepository
	messages contract.ChatMessageRepository
	queryLog contract.QueryLogRepository
	log      logger.ILogger

	history       []llm.Message
	historyLimit  int
	contextWindow int
	idleTimeout   time.Duration

	onStop func(sessionID string)
}

type ActorConfig struct {
	SessionID     string
	Executor      *pipeline.Executor
	Sessions      contract.ChatSessionRepository
	Messages      contract.ChatMessageRepository
	QueryLog      contract.QueryLogRepository
	Log           logger.ILogger
	MailboxSize   int
	HistoryLimit  int
	ContextWindow int
	IdleTimeout   time.Duration
	OnStop        func(sessionID string)
}

func NewActor(cfg ActorConfig) *Actor {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 16
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 10
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &Actor{
		sessionID:     cfg.SessionID,
		mailbox:       make(chan queryRequest, cfg.MailboxSize),
		done:          make(chan struct{}),
		stop:          make(chan struct{}),
		executor:      cfg.Executor,
		sessions:      cfg.Sessions,
		messages:      cfg.Messages,
		queryLog:      cfg.QueryLog,
		log:           cfg.Log,
		historyLimit:  cfg.HistoryLimit,
		contextWindow: cfg.ContextWindow,
		idleTimeout:   cfg.IdleTimeout,
		onStop:        cfg.OnStop,
	}
}

// Start loads persisted history and launches the worker goroutine.
func (a *Actor) Start(ctx context.Context) error {
	if _, err := a.sessions.GetOrCreate(ctx, a.sessionID, nil); err != nil {
		return fmt.Errorf("ensure session row: %w", err)
	}

	persisted, err := a.messages.FindRecent(ctx, a.sessionID, a.historyLimit)
	if err != nil {
		return fmt.Errorf("load session history: %w", err)
	}
	a.history = make([]llm.Message, 0, len(persisted))
	for _, m := range persisted {
		a.history = append(a.history, llm.Message{Role: m.Role, Content: m.Content})
	}

	go a.run()
	return nil
}

// Ask submits a query and blocks until the actor answers or ctx expires.
// A full mailbox returns SESSION_BUSY immediately.
func (a *Actor) Ask(ctx context.Context, query string, options ...llm.Option) (*pipeline.Result, error) {
	return a.submit(ctx, query, nil, options)
}

// AskStream is Ask with incremental delivery: sink receives response
// fragments before the final result returns.
func (a *Actor) AskStream(ctx context.Context, query string, sink TokenSink, options ...llm.Option) (*pipeline.Result, error) {
	return a.submit(ctx, query, sink, options)
}

func (a *Actor) submit(ctx context.Context, query string, sink TokenSink, options []llm.Option) (*pipeline.Result, error) {
	req := queryRequest{
		ctx:     ctx,
		query:   query,
		options: options,
		sink:    sink,
		respCh:  make(chan queryResponse, 1),
	}

	select {
	case a.mailbox <- req:
	case <-a.done:
		return nil, pipeline.NewError(pipeline.CodeSessionTimeout, "session", fmt.Errorf("session worker stopped"))
	case <-ctx.Done():
		return nil, pipeline.NewError(pipeline.CodeSessionTimeout, "session", ctx.Err())
	default:
		return nil, pipeline.NewError(pipeline.CodeSessionBusy, "session", fmt.Errorf("mailbox full"))
	}

	select {
	case resp := <-req.respCh:
		return resp.result, resp.err
	case <-a.done:
		// The send can race a worker that was already exiting, leaving the
		// request queued in a dead mailbox. A response the worker managed to
		// post before exiting is still authoritative.
		select {
		case resp := <-req.respCh:
			return resp.result, resp.err
		default:
		}
		return nil, pipeline.NewError(pipeline.CodeSessionTimeout, "session", fmt.Errorf("session worker stopped"))
	case <-ctx.Done():
		return nil, pipeline.NewError(pipeline.CodeSessionTimeout, "session", ctx.Err())
	}
}

func (a *Actor) run() {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("SessionActor", "worker panicked", map[string]interface{}{
				"session_id": a.sessionID,
				"panic":      fmt.Sprintf("%v", r),
			})
		}
		close(a.done)
		if a.onStop != nil {
			a.onStop(a.sessionID)
		}
	}()

	idle := time.NewTimer(a.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case req := <-a.mailbox:
			req.respCh <- a.handle(req)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(a.idleTimeout)
		case <-idle.C:
			a.log.Info("SessionActor", "idle timeout, shutting down", map[string]interface{}{
				"session_id": a.sessionID,
			})
			return
		case <-a.stop:
			a.log.Info("SessionActor", "session closed", map[string]interface{}{
				"session_id": a.sessionID,
			})
			return
		}
	}
}

func (a *Actor) handle(req queryRequest) queryResponse {
	if err := req.ctx.Err(); err != nil {
		return queryResponse{err: pipeline.NewError(pipeline.CodeSessionTimeout, "session", err)}
	}

	window := a.contextWindow
	if window > len(a.history) {
		window = len(a.history)
	}
	result, err := a.executor.Execute(req.ctx, a.sessionID, req.query, a.history[len(a.history)-window:], req.options...)
	if err != nil {
		return queryResponse{err: err}
	}

	if req.sink != nil {
		streamText(result.Text, req.sink)
	}

	a.appendTurn(llm.Message{Role: entity.RoleUser, Content: req.query})
	a.appendTurn(llm.Message{Role: entity.RoleAssistant, Content: result.Text})
	a.persistTurn(req.ctx, req.query, result)

	return queryResponse{result: result}
}

func (a *Actor) appendTurn(msg llm.Message) {
	a.history = append(a.history, msg)
	if len(a.history) > a.historyLimit {
		a.history = a.history[len(a.history)-a.historyLimit:]
	}
}

// persistTurn records both turns and the audit row. Persistence failures are
// logged; the in-memory conversation keeps going.
func (a *Actor) persistTurn(ctx context.Context, query string, result *pipeline.Result) {
	now := time.Now()

	if err := a.sessions.Touch(ctx, a.sessionID, now); err != nil {
		a.log.Warn("SessionActor", "failed to touch session", map[string]interface{}{
			"session_id": a.sessionID,
			"error":      err.Error(),
		})
	}

	userMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: a.sessionID,
		Role:          entity.RoleUser,
		Content:       query,
		CreatedAt:     now,
	}
	assistantMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: a.sessionID,
		Role:          entity.RoleAssistant,
		Content:       result.Text,
		Source:        result.Source,
		Confidence:    result.Confidence,
		LatencyMs:     result.Latency.Milliseconds(),
		ContextChunks: result.ContextChunks,
		CreatedAt:     now,
	}
	for _, msg := range []*entity.ChatMessage{userMsg, assistantMsg} {
		if err := a.messages.Create(ctx, msg); err != nil {
			a.log.Warn("SessionActor", "failed to persist message", map[string]interface{}{
				"session_id": a.sessionID,
				"role":       msg.Role,
				"error":      err.Error(),
			})
		}
	}

	if err := a.queryLog.Create(ctx, &entity.QueryLog{
		Id:            uuid.New(),
		ChatSessionId: a.sessionID,
		Query:         query,
		Response:      result.Text,
		Source:        result.Source,
		Confidence:    result.Confidence,
		LatencyMs:     result.Latency.Milliseconds(),
		ContextChunks: result.ContextChunks,
		CreatedAt:     now,
	}); err != nil {
		a.log.Warn("SessionActor", "failed to write query log", map[string]interface{}{
			"session_id": a.sessionID,
			"error":      err.Error(),
		})
	}
}

// streamText delivers the response word by word. Providers here are
// request/response, so streaming is emulated over the final text.
func streamText(text string, sink TokenSink) {
	words := strings.Fields(text)
	for i, w := range words {
		if i < len(words)-1 {
			sink(w + " ")
		} else {
			sink(w)
		}
	}
}

// Stop asks the worker goroutine to exit once it finishes the request it is
// handling, if any. Safe to call more than once.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Stopped reports whether the worker goroutine has exited.
func (a *Actor) Stopped() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}
