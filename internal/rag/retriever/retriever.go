package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

type Retriever struct {
	embedder embedding.Embedder
	index    vectorDB.Index
	logger   *logger_i.Logger
}

// New binds index to the embedder's identity. An index persisted with a
// different embedder fails here, before any query is served.
func New(ctx context.Context, embedder embedding.Embedder, index vectorDB.Index) (*Retriever, error) {
	if err := index.Bind(ctx, embedder.Identity()); err != nil {
		return nil, err
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger_i.NewLogger("retriever"),
	}, nil
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ragErrors.ErrInvalidK, k)
	}
	if !r.index.Populated() {
		return nil, ragErrors.ErrIndexUnavailable
	}
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	start := time.Now()
	vector, err := r.embedder.GetEmbedding(ctx, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		log.Error("query embedding failed", "error", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	start = time.Now()
	result, err := r.index.Query(ctx, vector, k)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		log.Error("index query failed", "error", err)
		return nil, fmt.Errorf("querying index: %w", err)
	}

	log.Debug("retrieved chunks", "k", k, "found", len(result))
	return result, nil
}
