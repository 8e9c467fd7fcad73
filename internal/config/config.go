package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Session   SessionConfig
	Ai        AIConfig
	Fallback  FallbackConfig
	Guardrail GuardrailConfig
	Retrieval RetrievalConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	QueryTimeout       time.Duration
	StreamTimeout      time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type CacheConfig struct {
	// DurableBackend selects the second tier: "postgres" or "redis".
	DurableBackend string
	FastCapacity   int
	FastTTL        time.Duration
	DurableTTL     time.Duration
	SweepInterval  time.Duration
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	HistoryLimit  int
	ContextWindow int
	MailboxSize   int
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	OllamaBaseURL     string
	OllamaEmbedModel  string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	HuggingFaceKey    string
	JinaKey           string
	MaxRetries        int
	RetryBackoff      time.Duration
	ConfidenceFloor   float64
	EmbedJobTopic     string
	TrainJobTopic     string
}

type FallbackConfig struct {
	Endpoint         string
	Timeout          time.Duration
	MaxRetries       int
	Backoff          time.Duration
	RateLimitBackoff time.Duration
}

type GuardrailConfig struct {
	StrictMode     bool
	MaxOutputChars int
}

type RetrievalConfig struct {
	Limit               int
	SimilarityThreshold float64
	ChunkSentences      int
	ChunkOverlap        int
	MinChunkLength      int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "gateway.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			QueryTimeout:       getEnvAsDuration("QUERY_TIMEOUT", 30*time.Second),
			StreamTimeout:      getEnvAsDuration("STREAM_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Cache: CacheConfig{
			DurableBackend: getEnv("CACHE_DURABLE_BACKEND", "postgres"),
			FastCapacity:   getEnvAsInt("CACHE_FAST_CAPACITY", 1024),
			FastTTL:        getEnvAsDuration("CACHE_FAST_TTL", 15*time.Minute),
			DurableTTL:     getEnvAsDuration("CACHE_DURABLE_TTL", 24*time.Hour),
			SweepInterval:  getEnvAsDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			HistoryLimit:  getEnvAsInt("SESSION_HISTORY_LIMIT", 50),
			ContextWindow: getEnvAsInt("SESSION_CONTEXT_WINDOW", 10),
			MailboxSize:   getEnvAsInt("SESSION_MAILBOX_SIZE", 16),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			HuggingFaceKey:    getEnv("HUGGINGFACE_API_KEY", ""),
			JinaKey:           getEnv("JINA_API_KEY", ""),
			MaxRetries:        getEnvAsInt("LLM_MAX_RETRIES", 3),
			RetryBackoff:      getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
			ConfidenceFloor:   getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
			EmbedJobTopic:     getEnv("EMBED_CHUNK_TOPIC_NAME", "EMBED_KNOWLEDGE_CHUNK"),
			TrainJobTopic:     getEnv("TRAIN_MODEL_TOPIC_NAME", "TRAIN_MODEL"),
		},
		Fallback: FallbackConfig{
			Endpoint:         getEnv("FALLBACK_ENDPOINT", ""),
			Timeout:          getEnvAsDuration("FALLBACK_TIMEOUT", 20*time.Second),
			MaxRetries:       getEnvAsInt("FALLBACK_MAX_RETRIES", 3),
			Backoff:          getEnvAsDuration("FALLBACK_BACKOFF", 500*time.Millisecond),
			RateLimitBackoff: getEnvAsDuration("FALLBACK_RATELIMIT_BACKOFF", 2*time.Second),
		},
		Guardrail: GuardrailConfig{
			StrictMode:     getEnvAsBool("GUARDRAIL_STRICT_MODE", false),
			MaxOutputChars: getEnvAsInt("GUARDRAIL_MAX_OUTPUT_CHARS", 8000),
		},
		Retrieval: RetrievalConfig{
			Limit:               getEnvAsInt("RETRIEVAL_LIMIT", 5),
			SimilarityThreshold: getEnvAsFloat("RETRIEVAL_SIMILARITY_THRESHOLD", 0.35),
			ChunkSentences:      getEnvAsInt("CHUNK_SENTENCES", 5),
			ChunkOverlap:        getEnvAsInt("CHUNK_OVERLAP", 1),
			MinChunkLength:      getEnvAsInt("CHUNK_MIN_LENGTH", 20),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
