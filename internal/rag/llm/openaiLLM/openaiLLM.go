package openaiLLM

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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api         openai.Client
	modelName   string
	temperature float64
	costPer1K   float64
	logger      *logger_i.Logger
}

func NewOpenAIClient(settings config.GenerationSettings, httpClient *http.Client) (llm.Provider, error) {
	if settings.APIKey == "" {
		return nil, errors.New("openai generator requires OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI client created", "model", settings.Model)
	return &llmClient{
		api:         openai.NewClient(opts...),
		modelName:   settings.Model,
		temperature: float64(settings.Temperature),
		costPer1K:   settings.CostPer1KTokens,
		logger:      logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt llm.Prompt) (llm.Generation, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Model:       openai.ChatModel(c.modelName),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		c.logger.Error("OpenAI generation failed", "error", err, "traceId", ctx.Value(config.TRACE_ID_KEY))
		return llm.Generation{}, fmt.Errorf("%w: %w", ragErrors.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Generation{}, fmt.Errorf("%w: no choices from %s", ragErrors.ErrGenerationFailed, c.modelName)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return llm.Generation{}, fmt.Errorf("%w: empty response from %s", ragErrors.ErrGenerationFailed, c.modelName)
	}

	tokens := int(resp.Usage.TotalTokens)
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
