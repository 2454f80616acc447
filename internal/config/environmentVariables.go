package config

import (
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL                       = "info"
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	RATE_LIMIT_IDLE_TTL             = 10 * time.Minute //per-IP buckets unused this long are dropped

	//chunking, counted in characters
	ChunkSize    = 500
	ChunkOverlap = 100

	//retrieval
	TopK           = 3
	ValidationTopK = 2

	//safety
	MaxQueryLength = 500

	//corpus limits
	MaxDocuments       = 10
	MaxPagesPerDoc     = 50
	UploadDir          = "temporary_data"
	MaxUploadBytes     = 16 << 20
	PageExtractTimeout = 10 * time.Second

	//ingestion fan-out
	EmbeddingBatchSize = 100
	MaxWorkerCount     = 4

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 60 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//index
	IndexBackendMemory = "memory"
	IndexBackendBolt   = "bolt"
	IndexBackendQdrant = "qdrant"
	BoltIndexPath      = "data/recall.db"

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false //set for https
	QdrantPoolSize          = 1     //2-5 is preferred for prod according to documentation
	QdrantCollection        = "recall-chunks"

	//generation
	GenerationTimeout         = 30 * time.Second
	GeneratorGemini           = "gemini"
	GeneratorOpenAI           = "openai"
	GeminiModelName           = "gemini-2.5-flash-lite"
	OpenAIChatModel           = "gpt-4o-mini"
	ModelTemperature  float32 = 0.3

	//embeddings
	EmbedderHash                        = "hash"
	EmbedderGoogle                      = "google"
	EmbedderOpenAI                      = "openai"
	HashEmbeddingModel                  = "hashed-bow-v1"
	HashEmbeddingDimension              = 512
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingMaxRetries                 = 3

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisCatalogStore   = 0
	RedisTelemetryStore = 1

	//telemetry
	TelemetrySinkJSONL     = "jsonl"
	TelemetrySinkRedis     = "redis"
	TelemetrySinkSQLite    = "sqlite"
	TelemetryJSONLPath     = "data/telemetry.jsonl"
	TelemetrySQLitePath    = "data/telemetry.db"
	TelemetryRedisKey      = "recall:telemetry"
	TelemetryQueryMaxChars = 100
)
