package service

import (
	"context"
	"time"

	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/repository/unitofwork"
	"ai-gateway-be/pkg/cache"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/pipeline"
	"ai-gateway-be/pkg/session"
)

type IGatewayService interface {
	// ProcessQuery routes the query through the session's actor and the full
	// mediation pipeline.
	ProcessQuery(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
	// StreamQuery is ProcessQuery with incremental token delivery.
	StreamQuery(ctx context.Context, req *dto.QueryRequest, sink session.TokenSink) (*dto.QueryResponse, error)
	GetHistory(ctx context.Context, sessionId string, limit int) (*dto.HistoryResponse, error)
	// CloseSession stops the session's worker and soft-deletes the session
	// row. Message history is kept for audit.
	CloseSession(ctx context.Context, sessionId string) error
	CacheStats(ctx context.Context) (*dto.CacheStatsResponse, error)
	ClearCache(ctx context.Context) error
}

type gatewayService struct {
	registry      *session.Registry
	uowFactory    unitofwork.RepositoryFactory
	cache         *cache.TieredCache
	historyLimit  int
	queryTimeout  time.Duration
	streamTimeout time.Duration
}

func NewGatewayService(
	registry *session.Registry,
	uowFactory unitofwork.RepositoryFactory,
	tieredCache *cache.TieredCache,
	historyLimit int,
	queryTimeout time.Duration,
	streamTimeout time.Duration,
) IGatewayService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	if streamTimeout <= 0 {
		streamTimeout = 120 * time.Second
	}
	return &gatewayService{
		registry:      registry,
		uowFactory:    uowFactory,
		cache:         tieredCache,
		historyLimit:  historyLimit,
		queryTimeout:  queryTimeout,
		streamTimeout: streamTimeout,
	}
}

func (s *gatewayService) ProcessQuery(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	return s.process(ctx, req, nil)
}

func (s *gatewayService) StreamQuery(ctx context.Context, req *dto.QueryRequest, sink session.TokenSink) (*dto.QueryResponse, error) {
	return s.process(ctx, req, sink)
}

func (s *gatewayService) process(ctx context.Context, req *dto.QueryRequest, sink session.TokenSink) (*dto.QueryResponse, error) {
	timeout := s.queryTimeout
	if sink != nil {
		timeout = s.streamTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	actor, err := s.registry.GetOrCreate(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}

	options := overrideOptions(req.Overrides)
	var r *pipeline.Result
	if sink != nil {
		r, err = actor.AskStream(ctx, req.Query, sink, options...)
	} else {
		r, err = actor.Ask(ctx, req.Query, options...)
	}
	if err != nil {
		return nil, err
	}
	return toQueryResponse(r), nil
}

func overrideOptions(overrides *dto.QueryOverrides) []llm.Option {
	if overrides == nil {
		return nil
	}
	var options []llm.Option
	if overrides.Model != "" {
		options = append(options, llm.WithModel(overrides.Model))
	}
	if overrides.Temperature != nil {
		options = append(options, llm.WithTemperature(*overrides.Temperature))
	}
	if overrides.MaxTokens > 0 {
		options = append(options, llm.WithMaxTokens(overrides.MaxTokens))
	}
	return options
}

func toQueryResponse(r *pipeline.Result) *dto.QueryResponse {
	return &dto.QueryResponse{
		Response:      r.Text,
		Source:        r.Source,
		Confidence:    r.Confidence,
		LatencyMs:     r.Latency.Milliseconds(),
		ContextChunks: r.ContextChunks,
	}
}

func (s *gatewayService) GetHistory(ctx context.Context, sessionId string, limit int) (*dto.HistoryResponse, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindRecent(ctx, sessionId, limit)
	if err != nil {
		return nil, err
	}

	resp := &dto.HistoryResponse{
		SessionId: sessionId,
		Messages:  make([]dto.HistoryMessage, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, dto.HistoryMessage{
			Role:       m.Role,
			Content:    m.Content,
			Source:     m.Source,
			Confidence: m.Confidence,
			CreatedAt:  m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *gatewayService) CloseSession(ctx context.Context, sessionId string) error {
	s.registry.Stop(sessionId)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChatSessionRepository().Delete(ctx, sessionId)
}

func (s *gatewayService) CacheStats(ctx context.Context) (*dto.CacheStatsResponse, error) {
	active, err := s.cache.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CacheStatsResponse{ActiveEntries: active}, nil
}

func (s *gatewayService) ClearCache(ctx context.Context) error {
	s.cache.Clear(ctx)
	return nil
}
