package bootstrap

import (
	"context"
	"log"

	"ai-gateway-be/internal/config"
	"ai-gateway-be/internal/controller"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/internal/repository/implementation"
	redisrepo "ai-gateway-be/internal/repository/redis"
	"ai-gateway-be/internal/repository/unitofwork"
	"ai-gateway-be/internal/service"
	"ai-gateway-be/pkg/cache"
	"ai-gateway-be/pkg/embedding"
	"ai-gateway-be/pkg/embedding/jina"
	"ai-gateway-be/pkg/events"
	"ai-gateway-be/pkg/fallback"
	"ai-gateway-be/pkg/guardrail"
	"ai-gateway-be/pkg/llm"
	"ai-gateway-be/pkg/llm/factory"
	"ai-gateway-be/pkg/pipeline"
	"ai-gateway-be/pkg/rag"
	"ai-gateway-be/pkg/session"

	pktNats "ai-gateway-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	GatewayController   controller.IGatewayController
	IngestionController controller.IIngestionController
	StreamController    *controller.StreamController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Maintenance handles for main.go
	TieredCache *cache.TieredCache
	Logger      logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	retryingProvider := llm.NewRetryingProvider(llmProvider, cfg.Ai.MaxRetries, cfg.Ai.RetryBackoff)

	// 4. Cache tiers
	var durableStore contract.CacheStore
	if cfg.Cache.DurableBackend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		durableStore = redisrepo.NewCacheStore(rdb)
		log.Printf("[INFO] Using Durable Cache Tier: REDIS")
	} else {
		durableStore = implementation.NewCacheEntryRepository(db)
		log.Printf("[INFO] Using Durable Cache Tier: POSTGRES")
	}

	fastCache := cache.NewFastCache(cfg.Cache.FastCapacity, cfg.Cache.FastTTL)
	tieredCache := cache.NewTieredCache(fastCache, durableStore, sysLogger, cfg.Cache.FastTTL, cfg.Cache.DurableTTL)

	// 5. Telemetry sink
	var emitter events.Emitter = events.NopEmitter{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			emitter = natsPub
		}
	}

	// 6. Pipeline stages
	chunkRepo := implementation.NewKnowledgeChunkRepository(db)
	retriever := rag.NewRetriever(
		embeddingProvider,
		chunkRepo,
		sysLogger,
		cfg.Retrieval.Limit,
		cfg.Retrieval.SimilarityThreshold,
	)

	guards := guardrail.NewPipeline(guardrail.Options{
		StrictMode:     cfg.Guardrail.StrictMode,
		MaxOutputChars: cfg.Guardrail.MaxOutputChars,
	})

	var fallbackClient *fallback.Client
	if cfg.Fallback.Endpoint != "" {
		fallbackClient = fallback.NewClient(fallback.Config{
			Endpoint:         cfg.Fallback.Endpoint,
			Timeout:          cfg.Fallback.Timeout,
			MaxRetries:       cfg.Fallback.MaxRetries,
			Backoff:          cfg.Fallback.Backoff,
			RateLimitBackoff: cfg.Fallback.RateLimitBackoff,
		})
	} else {
		log.Printf("[WARN] No fallback endpoint configured; low-confidence or rejected answers will fail the request")
	}

	executor := pipeline.NewExecutor(pipeline.ExecutorConfig{
		Cache:           tieredCache,
		Retriever:       retriever,
		Provider:        retryingProvider,
		Guards:          guards,
		Fallback:        fallbackClient,
		Emitter:         emitter,
		Log:             sysLogger,
		ConfidenceFloor: cfg.Ai.ConfidenceFloor,
	})

	// 7. Session actors
	registry := session.NewRegistry(session.RegistryConfig{
		Executor:      executor,
		Sessions:      implementation.NewChatSessionRepository(db),
		Messages:      implementation.NewChatMessageRepository(db),
		QueryLog:      implementation.NewQueryLogRepository(db),
		Log:           sysLogger,
		MailboxSize:   cfg.Session.MailboxSize,
		HistoryLimit:  cfg.Session.HistoryLimit,
		ContextWindow: cfg.Session.ContextWindow,
		IdleTimeout:   cfg.Session.IdleTimeout,
	})

	// 8. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Ai.EmbedJobTopic, cfg.Ai.TrainJobTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.EmbedJobTopic,
		cfg.Ai.TrainJobTopic,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)

	gatewayService := service.NewGatewayService(
		registry, uowFactory, tieredCache,
		cfg.Session.HistoryLimit, cfg.App.QueryTimeout, cfg.App.StreamTimeout,
	)
	chunker := rag.NewChunker(cfg.Retrieval.ChunkSentences, cfg.Retrieval.ChunkOverlap, cfg.Retrieval.MinChunkLength)
	ingestionService := service.NewIngestionService(uowFactory, chunker, publisherService, sysLogger)

	// 9. Controllers
	return &Container{
		GatewayController:   controller.NewGatewayController(gatewayService),
		IngestionController: controller.NewIngestionController(ingestionService),
		StreamController:    controller.NewStreamController(gatewayService, sysLogger),

		ConsumerService: consumerService,
		TieredCache:     tieredCache,
		Logger:          sysLogger,
	}
}
