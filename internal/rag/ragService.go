package rag

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
	"github.com/akolanti/RecallAPI/internal/rag/safety"
	"github.com/akolanti/RecallAPI/internal/telemetry"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

/*
Service is the public contract handlers and the MCP server call; service is
the private struct holding the retriever, the model client and the gate.
Callers only see Service, so tests swap every collaborator for a mock without
touching the handlers.
*/

const (
	fallbackMessage        = "Sorry, something went wrong. Please try again."
	forfeitFallbackMessage = "Could not retrieve answer."
	emptyCorpusMessage     = "Please upload lecture PDFs before asking questions."
)

type Service interface {
	// Handle answers a summary or quiz query. It never returns an error; every
	// failure is folded into the response pathway.
	Handle(ctx context.Context, req queryModel.Request) queryModel.Response
	// RandomQuiz builds one question from a random indexed chunk.
	RandomQuiz(ctx context.Context, quizType queryModel.QuizType) (queryModel.Response, error)
	ValidateAnswer(ctx context.Context, req queryModel.ValidationRequest) queryModel.ValidationResult
	Forfeit(ctx context.Context, question string) queryModel.ForfeitResult
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error)
}

// ChunkSource lists every indexed chunk.
type ChunkSource interface {
	Chunks(ctx context.Context) ([]commonModels.DocChunk, error)
}

type Options struct {
	TopK              int
	ValidationTopK    int
	GenerationTimeout time.Duration
}

type service struct {
	retriever         Retriever
	chunks            ChunkSource
	llmProvider       llm.Provider
	gate              *safety.Gate
	recorder          *telemetry.Recorder
	topK              int
	validationTopK    int
	generationTimeout time.Duration
	logger            *logger_i.Logger
}

func NewService(retriever Retriever, chunks ChunkSource, provider llm.Provider, gate *safety.Gate,
	recorder *telemetry.Recorder, opts Options) Service {
	if opts.TopK <= 0 {
		opts.TopK = config.TopK
	}
	if opts.ValidationTopK <= 0 {
		opts.ValidationTopK = config.ValidationTopK
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = config.GenerationTimeout
	}
	return &service{
		retriever:         retriever,
		chunks:            chunks,
		llmProvider:       provider,
		gate:              gate,
		recorder:          recorder,
		topK:              opts.TopK,
		validationTopK:    opts.ValidationTopK,
		generationTimeout: opts.GenerationTimeout,
		logger:            logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Handle(ctx context.Context, req queryModel.Request) queryModel.Response {
	start := time.Now()
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if req.Mode != queryModel.ModeQuiz {
		req.Mode = queryModel.ModeSummary
		req.QuizType = queryModel.QuizTypeNone
	}
	resp := queryModel.Response{
		Mode:      req.Mode,
		QuizType:  req.QuizType,
		Sources:   []string{},
		Citations: []queryModel.Citation{},
	}

	verdict := s.gate.Evaluate(req.Query)
	if !verdict.Accepted {
		log.Info("query rejected", "reason", verdict.Reason)
		resp.Pathway = queryModel.PathwayRejected
		resp.Refusal = refusal(verdict)
		resp.LatencyMs = s.finish(ctx, start, outcome{
			mode: req.Mode, pathway: resp.Pathway, query: req.Query,
			metadata: map[string]any{"reason": string(verdict.Reason)},
		})
		return resp
	}

	query := strings.TrimSpace(req.Query)
	result := s.retrieve(ctx, query, s.topK)
	resp.ChunksRetrieved = len(result)
	resp.Pathway = queryModel.PathwayRAG
	if len(result) == 0 {
		resp.Pathway = queryModel.PathwayEmptyContext
	}

	prompt := buildPrompt(modeInstruction(req.Mode, req.QuizType), query, chunksOf(result))
	s.answer(ctx, &resp, prompt, result)

	resp.LatencyMs = s.finish(ctx, start, outcome{
		mode: req.Mode, pathway: resp.Pathway, query: req.Query,
		tokens: resp.Tokens, cost: resp.Cost,
		metadata: map[string]any{"chunks_retrieved": resp.ChunksRetrieved, "quiz_type": string(req.QuizType)},
	})
	return resp
}

func (s *service) RandomQuiz(ctx context.Context, quizType queryModel.QuizType) (queryModel.Response, error) {
	start := time.Now()
	resp := queryModel.Response{
		Mode:      queryModel.ModeQuiz,
		QuizType:  quizType,
		Sources:   []string{},
		Citations: []queryModel.Citation{},
	}

	all, err := s.chunks.Chunks(ctx)
	if err == nil && len(all) == 0 {
		err = ragErrors.ErrIndexUnavailable
	}
	if err != nil {
		s.finish(ctx, start, outcome{
			mode: resp.Mode, pathway: queryModel.PathwayEmptyContext,
			metadata: map[string]any{"error": string(ragErrors.Reason(err))},
		})
		return resp, fmt.Errorf("%s: %w", emptyCorpusMessage, err)
	}

	chunk := all[rand.IntN(len(all))]
	result := commonModels.RetrievalResult{{Chunk: chunk, Score: 1}}
	resp.Pathway = queryModel.PathwayRAG
	resp.ChunksRetrieved = 1

	prompt := buildPrompt(modeInstruction(queryModel.ModeQuiz, quizType), "", []commonModels.DocChunk{chunk})
	s.answer(ctx, &resp, prompt, result)

	resp.LatencyMs = s.finish(ctx, start, outcome{
		mode: resp.Mode, pathway: resp.Pathway,
		tokens: resp.Tokens, cost: resp.Cost,
		metadata: map[string]any{"chunks_retrieved": 1, "quiz_type": string(quizType), "random": true},
	})
	return resp, nil
}

// answer calls the model and fills resp. A generation failure sets the
// fallback message and the generation_error pathway.
func (s *service) answer(ctx context.Context, resp *queryModel.Response, prompt llm.Prompt, result commonModels.RetrievalResult) {
	gen, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", "traceId", ctx.Value(config.TRACE_ID_KEY), "error", err)
		resp.Pathway = queryModel.PathwayGenerationError
		resp.Answer = fallbackMessage
		resp.Fallback = true
		return
	}

	resp.Answer = gen.Text
	resp.Tokens = gen.Tokens
	resp.Cost = gen.Cost
	resp.Sources = result.Sources()
	resp.Citations = citations(result)

	if resp.Mode == queryModel.ModeQuiz && resp.QuizType != queryModel.QuizTypeNone {
		resp.Quiz, resp.IsValidJSON = extractJSON(gen.Text)
	}
}

func (s *service) ValidateAnswer(ctx context.Context, req queryModel.ValidationRequest) queryModel.ValidationResult {
	start := time.Now()
	mode := queryModel.ModeValidateAnswer
	answer := strings.TrimSpace(req.Answer)
	expected := strings.TrimSpace(req.CorrectAnswer)

	verdict := s.gate.Evaluate(answer)
	if !verdict.Accepted {
		latency := s.finish(ctx, start, outcome{
			mode: mode, pathway: queryModel.PathwayRejected, query: req.Question,
			metadata: map[string]any{"reason": string(verdict.Reason)},
		})
		return queryModel.ValidationResult{Refusal: refusal(verdict), Feedback: verdict.Message, LatencyMs: latency}
	}

	if sameAnswer(answer, expected) {
		// nothing retrieved or generated; the method tells it apart from a model verdict
		latency := s.finish(ctx, start, outcome{
			mode: mode, pathway: queryModel.PathwayRAG, query: req.Question,
			metadata: map[string]any{"method": string(queryModel.ValidationExact), "chunks_retrieved": 0},
		})
		return queryModel.ValidationResult{
			Correct:   true,
			Feedback:  fmt.Sprintf("Correct! '%s' matches the expected answer.", answer),
			Method:    queryModel.ValidationExact,
			LatencyMs: latency,
		}
	}

	result := s.retrieve(ctx, req.Question, s.validationTopK)
	prompt := buildPrompt(fmt.Sprintf(validationTemplate, req.Question, expected, answer), "", chunksOf(result))

	pathway := queryModel.PathwayRAG
	gen, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("validation generation failed, comparing directly", "error", err)
		pathway = queryModel.PathwayGenerationError
	} else if judged, ok := extractJSON(gen.Text); ok {
		if correct, has := judged["correct"]; has {
			feedback, _ := judged["feedback"].(string)
			if feedback == "" {
				feedback = "Answer validated."
			}
			latency := s.finish(ctx, start, outcome{
				mode: mode, pathway: pathway, query: req.Question, tokens: gen.Tokens, cost: gen.Cost,
				metadata: map[string]any{"method": string(queryModel.ValidationModel), "chunks_retrieved": len(result)},
			})
			return queryModel.ValidationResult{
				Correct:   truthy(correct),
				Feedback:  feedback,
				Method:    queryModel.ValidationModel,
				LatencyMs: latency,
			}
		}
	}

	// direct comparison once the model could not decide
	feedback := fmt.Sprintf("Your answer '%s' does not match '%s'.", answer, expected)
	latency := s.finish(ctx, start, outcome{
		mode: mode, pathway: pathway, query: req.Question, tokens: gen.Tokens, cost: gen.Cost,
		metadata: map[string]any{"method": string(queryModel.ValidationFallback), "chunks_retrieved": len(result), "fallback": true},
	})
	return queryModel.ValidationResult{
		Correct:   false,
		Feedback:  feedback,
		Method:    queryModel.ValidationFallback,
		LatencyMs: latency,
	}
}

func (s *service) Forfeit(ctx context.Context, question string) queryModel.ForfeitResult {
	start := time.Now()
	mode := queryModel.ModeForfeit

	verdict := s.gate.Evaluate(question)
	if !verdict.Accepted {
		latency := s.finish(ctx, start, outcome{
			mode: mode, pathway: queryModel.PathwayRejected, query: question,
			metadata: map[string]any{"reason": string(verdict.Reason)},
		})
		return queryModel.ForfeitResult{Sources: []string{}, Refusal: refusal(verdict), LatencyMs: latency}
	}

	question = strings.TrimSpace(question)
	result := s.retrieve(ctx, question, s.validationTopK)
	pathway := queryModel.PathwayRAG
	if len(result) == 0 {
		pathway = queryModel.PathwayEmptyContext
	}

	prompt := buildPrompt(fmt.Sprintf(forfeitTemplate, question), "", chunksOf(result))
	gen, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Error("forfeit generation failed", "traceId", ctx.Value(config.TRACE_ID_KEY), "error", err)
		latency := s.finish(ctx, start, outcome{
			mode: mode, pathway: queryModel.PathwayGenerationError, query: question,
			metadata: map[string]any{"error": string(ragErrors.Reason(err))},
		})
		return queryModel.ForfeitResult{Answer: forfeitFallbackMessage, Sources: []string{}, Fallback: true, LatencyMs: latency}
	}

	latency := s.finish(ctx, start, outcome{
		mode: mode, pathway: pathway, query: question, tokens: gen.Tokens, cost: gen.Cost,
		metadata: map[string]any{"chunks_retrieved": len(result)},
	})
	return queryModel.ForfeitResult{Answer: gen.Text, Sources: result.Sources(), LatencyMs: latency}
}

// IsEmptyCorpus reports whether err from RandomQuiz means nothing is indexed yet.
func IsEmptyCorpus(err error) bool {
	return errors.Is(err, ragErrors.ErrIndexUnavailable)
}
