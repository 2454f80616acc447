package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/customHttpClient"
	"github.com/akolanti/RecallAPI/internal/data/redisStore"
	"github.com/akolanti/RecallAPI/internal/data/store"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/rag"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/RecallAPI/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/RecallAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/RecallAPI/internal/rag/ingest"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
	"github.com/akolanti/RecallAPI/internal/rag/llm/gemini"
	"github.com/akolanti/RecallAPI/internal/rag/llm/openaiLLM"
	"github.com/akolanti/RecallAPI/internal/rag/retriever"
	"github.com/akolanti/RecallAPI/internal/rag/safety"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB/boltIndex"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB/memoryIndex"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/RecallAPI/internal/telemetry"
	"github.com/akolanti/RecallAPI/internal/worker"
)

// app holds every long-lived component one process needs.
type app struct {
	settings  config.Settings
	index     vectorDB.Index
	retriever *retriever.Retriever
	corpus    *ingest.Service
	rag       rag.Service
	recorder  *telemetry.Recorder
}

// buildApp wires the pipeline from settings. Redis failures fall back to
// in-memory stores when FALLBACK_REDIS_TO_INTERNALSTORE is set.
func buildApp(ctx context.Context, settings config.Settings) (*app, error) {
	embedder, err := newEmbedder(ctx, settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	provider, err := newProvider(ctx, settings.Generation)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	index, err := newIndex(settings.Index)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	ret, err := retriever.New(ctx, embedder, index)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("binding index: %w", err)
	}
	gate, err := safety.NewGate(settings.Safety)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	chunker, err := ingest.NewChunker(settings.Chunking.Size, settings.Chunking.Overlap)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	catalog, telemetryStore, err := newStores(ctx, settings.Redis)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	recorder, err := telemetry.FromSettings(settings.Telemetry, telemetryStore)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	corpus := ingest.NewService(
		ingest.NewFileExtractor(settings.Corpus.MaxPages, config.PageExtractTimeout),
		chunker, embedder, index, catalog,
		worker.NewPool(settings.Embedding.Workers),
		ingest.Options{MaxDocuments: settings.Corpus.MaxDocuments, BatchSize: settings.Embedding.BatchSize},
	)
	if restored, err := corpus.Restore(ctx); err != nil {
		logger.Warn("could not restore catalog from index", "error", err)
	} else if restored > 0 {
		logger.Info("restored documents from persisted index", "documents", restored)
	}

	ragService := rag.NewService(ret, index, provider, gate, recorder, rag.Options{
		TopK:              settings.Retrieval.TopK,
		ValidationTopK:    settings.Retrieval.ValidationTopK,
		GenerationTimeout: settings.Generation.Timeout,
	})

	return &app{
		settings:  settings,
		index:     index,
		retriever: ret,
		corpus:    corpus,
		rag:       ragService,
		recorder:  recorder,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.recorder.Close(), a.index.Close())
}

func newEmbedder(ctx context.Context, settings config.EmbeddingSettings) (embedding.Embedder, error) {
	switch settings.Provider {
	case config.EmbedderGoogle:
		return googleEmbedding.NewGoogleEmbedder(ctx, settings, customHttpClient.NewPooledClient())
	case config.EmbedderOpenAI:
		return openaiEmbedding.NewOpenAIEmbedder(settings, customHttpClient.NewPooledClient())
	default:
		embedder, err := hashEmbedding.NewEmbedder(settings.Dimension)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	}
}

func newProvider(ctx context.Context, settings config.GenerationSettings) (llm.Provider, error) {
	if settings.Provider == config.GeneratorOpenAI {
		return openaiLLM.NewOpenAIClient(settings, customHttpClient.NewPooledClient())
	}
	return gemini.NewGeminiClient(ctx, settings, customHttpClient.NewPooledClient())
}

func newIndex(settings config.IndexSettings) (vectorDB.Index, error) {
	switch settings.Backend {
	case config.IndexBackendBolt:
		if err := os.MkdirAll(filepath.Dir(settings.Path), 0750); err != nil {
			return nil, err
		}
		index, err := boltIndex.Open(settings.Path)
		if err != nil {
			return nil, err
		}
		return index, nil
	case config.IndexBackendQdrant:
		index, err := qdrantDB.New(settings)
		if err != nil {
			return nil, err
		}
		return index, nil
	default:
		return memoryIndex.New(), nil
	}
}

func newStores(ctx context.Context, settings config.RedisSettings) (commonModels.CorpusStore, *redisStore.Store, error) {
	if !settings.Enabled {
		return store.InitInMemoryCorpusStore(), nil, nil
	}

	catalog, err := store.GetRedisCorpusStore(ctx, settings)
	if err != nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, nil, fmt.Errorf("redis catalog: %w", err)
		}
		logger.Error("Redis stores are offline, using in-memory catalog", "error", err)
		return store.InitInMemoryCorpusStore(), nil, nil
	}

	telemetryStore, err := redisStore.GetRedisStore(ctx, settings, config.RedisTelemetryStore)
	if err != nil {
		logger.Warn("Redis telemetry store is offline", "error", err)
		return catalog, nil, nil
	}
	return catalog, telemetryStore, nil
}
