package session

import (
	"context"
	"sync"
	"time"

	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/pkg/pipeline"
)

// Registry hands out the single live actor per session id. Lookup and
// creation are atomic, so concurrent first requests for the same session get
// the same actor.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*Actor

	executor *pipeline.Executor
	sessions contract.ChatSessionRepository
	messages contract.ChatMessageRepository
	queryLog contract.QueryLogRepository
	log      logger.ILogger

	mailboxSize   int
	historyLimit  int
	contextWindow int
	idleTimeout   time.Duration
}

type RegistryConfig struct {
	Executor      *pipeline.Executor
	Sessions      contract.ChatSessionRepository
	Messages      contract.ChatMessageRepository
	QueryLog      contract.QueryLogRepository
	Log           logger.ILogger
	MailboxSize   int
	HistoryLimit  int
	ContextWindow int
	IdleTimeout   time.Duration
}

func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		actors:        make(map[string]*Actor),
		executor:      cfg.Executor,
		sessions:      cfg.Sessions,
		messages:      cfg.Messages,
		queryLog:      cfg.QueryLog,
		log:           cfg.Log,
		mailboxSize:   cfg.MailboxSize,
		historyLimit:  cfg.HistoryLimit,
		contextWindow: cfg.ContextWindow,
		idleTimeout:   cfg.IdleTimeout,
	}
}

// GetOrCreate returns the live actor for the session, spawning one if none is
// running. An actor that died (idle timeout or panic) is replaced with a
// fresh one rebuilt from persisted history.
func (r *Registry) GetOrCreate(ctx context.Context, sessionID string) (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actor, ok := r.actors[sessionID]; ok && !actor.Stopped() {
		return actor, nil
	}

	actor := NewActor(ActorConfig{
		SessionID:     sessionID,
		Executor:      r.executor,
		Sessions:      r.sessions,
		Messages:      r.messages,
		QueryLog:      r.queryLog,
		Log:           r.log,
		MailboxSize:   r.mailboxSize,
		HistoryLimit:  r.historyLimit,
		ContextWindow: r.contextWindow,
		IdleTimeout:   r.idleTimeout,
		OnStop:        r.deregister,
	})
	if err := actor.Start(ctx); err != nil {
		return nil, err
	}

	r.actors[sessionID] = actor
	return actor, nil
}

// deregister drops the mapping once an actor's goroutine has exited, but only
// if it has not already been replaced.
func (r *Registry) deregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actor, ok := r.actors[sessionID]; ok && actor.Stopped() {
		delete(r.actors, sessionID)
	}
}

// Stop shuts down the session's actor if one is live. Persisted history is
// untouched; a later query spawns a fresh actor.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	actor, ok := r.actors[sessionID]
	r.mu.Unlock()
	if ok {
		actor.Stop()
	}
}

// Len reports the number of live actors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}
