package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
	retryBackoff = 5 * time.Second
)

type client struct {
	genAi      *genai.Client
	model      string
	dimension  int32
	maxRetries int
	logger     *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, settings config.EmbeddingSettings, httpClient *http.Client) (embedding.Embedder, error) {
	if settings.APIKey == "" {
		return nil, errors.New("google embedder requires GEMINI_API_KEY")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     settings.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating google embedding client: %w", err)
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", settings.Model, "dimension", settings.Dimension)
	return &client{
		genAi:      c,
		model:      settings.Model,
		dimension:  int32(settings.Dimension),
		maxRetries: max(settings.MaxRetries, 1),
		logger:     logger,
	}, nil
}

func (c *client) Identity() commonModels.EmbeddingIdentity {
	return commonModels.EmbeddingIdentity{
		Provider:  config.EmbedderGoogle,
		Model:     c.model,
		Dimension: int(c.dimension),
	}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	res, err := c.doCallWithRetry(ctx, genai.Text(query), taskQuery)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, errors.New("google embedding returned no vectors")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	res, err := c.doCallWithRetry(ctx, getContent(chunks), taskDocument)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("google embedding returned %d vectors for %d chunks", len(res.Embeddings), len(chunks))
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *client) doCallWithRetry(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		res, err := c.doCall(ctx, content, task)
		if err == nil && res != nil {
			return res, nil
		}
		lastErr = err
		if !doRetry(err, log) || attempt == c.maxRetries {
			break
		}
		log.Debug("Retrying embedding call", "attempt", attempt, "backoff", retryBackoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	log.Error("Error getting Embeddings from Google", "error", lastErr)
	if lastErr == nil {
		lastErr = errors.New("google embedding returned no response")
	}
	return nil, fmt.Errorf("google embedding: %w", lastErr)
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}
