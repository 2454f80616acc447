package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
	"github.com/akolanti/RecallAPI/internal/rag/safety"
	"github.com/akolanti/RecallAPI/internal/telemetry"
)

// jsonObject grabs the outermost {...} span of a model answer.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON parses the whole answer as a JSON object, or failing that the
// outermost braces inside it.
func extractJSON(answer string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &obj); err == nil {
		return obj, true
	}
	match := jsonObject.FindString(answer)
	if match == "" {
		return nil, false
	}
	if err := json.Unmarshal([]byte(match), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// truthy reads a model supplied "correct" value that may arrive as a bool, a
// string or a number.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes" || s == "correct"
	case float64:
		return t != 0
	default:
		return false
	}
}

func citations(result commonModels.RetrievalResult) []queryModel.Citation {
	out := make([]queryModel.Citation, 0, len(result))
	for _, sc := range result {
		out = append(out, queryModel.Citation{
			DocumentId:   sc.Chunk.DocId,
			DocumentName: sc.Chunk.DocName,
			ChunkIndex:   sc.Chunk.Index,
			Score:        sc.Score,
		})
	}
	return out
}

func refusal(v safety.Verdict) *queryModel.Refusal {
	return &queryModel.Refusal{Reason: v.Reason, Message: v.Message}
}

func sameAnswer(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// generate runs the provider under the generation timeout.
func (s *service) generate(ctx context.Context, prompt llm.Prompt) (llm.Generation, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	gen, err := s.llmProvider.Generate(genCtx, prompt)
	if err != nil {
		return llm.Generation{}, fmt.Errorf("generating: %w", err)
	}
	return gen, nil
}

// retrieve degrades every retrieval failure to an empty result.
func (s *service) retrieve(ctx context.Context, query string, k int) commonModels.RetrievalResult {
	result, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		s.logger.Warn("retrieval failed, continuing without context",
			"traceId", ctx.Value(config.TRACE_ID_KEY), "error", err)
		return nil
	}
	return result
}

type outcome struct {
	mode     queryModel.Mode
	pathway  queryModel.Pathway
	query    string
	tokens   int
	cost     float64
	metadata map[string]any
}

// finish writes the single telemetry record of a call and returns its latency.
func (s *service) finish(ctx context.Context, start time.Time, o outcome) int64 {
	elapsed := time.Since(start)
	metrics.CapturePipelineOutcome(string(o.mode), string(o.pathway))
	metrics.CaptureRequestMetrics(string(o.pathway), elapsed)

	if o.metadata == nil {
		o.metadata = map[string]any{}
	}
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && traceId != "" {
		o.metadata["trace_id"] = traceId
	}
	s.recorder.Record(ctx, telemetry.Record{
		Timestamp: start.UTC(),
		Mode:      string(o.mode),
		Pathway:   string(o.pathway),
		Query:     o.query,
		LatencyMs: elapsed.Milliseconds(),
		Tokens:    o.tokens,
		Cost:      o.cost,
		Metadata:  o.metadata,
	})
	return elapsed.Milliseconds()
}
