package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

func NewOpenAIEmbedder(settings config.EmbeddingSettings, httpClient *http.Client) (embedding.Embedder, error) {
	if settings.APIKey == "" {
		return nil, errors.New("openai embedder requires OPENAI_API_KEY")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(max(settings.MaxRetries, 0)),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	logger := logger_i.NewLogger("openai_embedding")
	logger.Info("OpenAI Embedding client created", "model", settings.Model, "dimension", settings.Dimension)
	return &client{
		api:       openai.NewClient(opts...),
		model:     settings.Model,
		dimension: settings.Dimension,
		logger:    logger,
	}, nil
}

func (c *client) Identity() commonModels.EmbeddingIdentity {
	return commonModels.EmbeddingIdentity{
		Provider:  config.EmbedderOpenAI,
		Model:     c.model,
		Dimension: c.dimension,
	}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunks},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		c.logger.Error("Error getting Embeddings from OpenAI", "error", err, "traceId", ctx.Value(config.TRACE_ID_KEY))
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) != len(chunks) {
		return nil, fmt.Errorf("openai embedding returned %d vectors for %d inputs", len(resp.Data), len(chunks))
	}

	vectors := make([][]float32, len(chunks))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("openai embedding returned out of range index %d", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
