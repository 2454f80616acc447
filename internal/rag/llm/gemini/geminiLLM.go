package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	costPer1K   float64
	logger      *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, settings config.GenerationSettings, httpClient *http.Client) (llm.Provider, error) {
	if settings.APIKey == "" {
		return nil, errors.New("gemini generator requires GEMINI_API_KEY")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     settings.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", settings.Model)
	return &llmClient{
		client:      c,
		modelName:   settings.Model,
		temperature: settings.Temperature,
		costPer1K:   settings.CostPer1KTokens,
		logger:      logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (llm.Generation, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		},
		Temperature: &c.temperature,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt.User), contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return llm.Generation{}, fmt.Errorf("%w: %w", ragErrors.ErrGenerationFailed, err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return llm.Generation{}, fmt.Errorf("%w: empty response from %s", ragErrors.ErrGenerationFailed, c.modelName)
	}

	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	if tokens == 0 {
		tokens = llm.ApproxTokens(prompt.System, prompt.User, text)
	}

	return llm.Generation{
		Text:   text,
		Tokens: tokens,
		Cost:   llm.Cost(tokens, c.costPer1K),
		Model:  c.modelName,
	}, nil
}
