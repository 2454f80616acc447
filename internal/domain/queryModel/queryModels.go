package queryModel

import (
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
)

type Mode string
type QuizType string
type Pathway string

const (
	ModeSummary Mode = "summary"
	ModeQuiz    Mode = "quiz"

	// telemetry-only modes
	ModeValidateAnswer Mode = "validate_answer"
	ModeForfeit        Mode = "forfeit"

	QuizTypeNone           QuizType = ""
	QuizTypeMultipleChoice QuizType = "multiple_choice"
	QuizTypeShortAnswer    QuizType = "short_answer"

	PathwayRAG             Pathway = "rag"
	PathwayEmptyContext    Pathway = "empty_context"
	PathwayRejected        Pathway = "rejected"
	PathwayGenerationError Pathway = "generation_error"
)

// ParseMode falls back to summary for anything that is not a quiz.
func ParseMode(raw string) Mode {
	if Mode(raw) == ModeQuiz {
		return ModeQuiz
	}
	return ModeSummary
}

func ParseQuizType(raw string) QuizType {
	switch QuizType(raw) {
	case QuizTypeMultipleChoice, QuizTypeShortAnswer:
		return QuizType(raw)
	}
	return QuizTypeNone
}

type Request struct {
	TraceId  string
	Query    string
	Mode     Mode
	QuizType QuizType
}

type Citation struct {
	DocumentId   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

type Refusal struct {
	Reason  ragErrors.ReasonCode `json:"reason"`
	Message string               `json:"message"`
}

type Response struct {
	Mode     Mode     `json:"mode"`
	QuizType QuizType `json:"quiz_type,omitempty"`
	Pathway  Pathway  `json:"pathway"`

	Answer string `json:"answer,omitempty"`
	// Quiz holds the JSON object extracted from a structured quiz answer.
	Quiz        map[string]any `json:"quiz,omitempty"`
	IsValidJSON bool           `json:"is_valid_json"`

	Sources   []string   `json:"sources"`
	Citations []Citation `json:"citations"`

	Refusal  *Refusal `json:"refusal,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`

	ChunksRetrieved int     `json:"chunks_retrieved"`
	Tokens          int     `json:"tokens"`
	Cost            float64 `json:"cost_usd"`
	LatencyMs       int64   `json:"latency_ms"`
}

func (r Response) Refused() bool {
	return r.Refusal != nil
}

type ValidationRequest struct {
	Question      string
	Answer        string
	CorrectAnswer string
}

type ValidationMethod string

const (
	ValidationExact    ValidationMethod = "exact"
	ValidationModel    ValidationMethod = "model"
	ValidationFallback ValidationMethod = "direct_comparison"
)

type ValidationResult struct {
	Correct   bool             `json:"correct"`
	Feedback  string           `json:"feedback"`
	Method    ValidationMethod `json:"method"`
	Refusal   *Refusal         `json:"refusal,omitempty"`
	LatencyMs int64            `json:"latency_ms"`
}

type ForfeitResult struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Fallback  bool     `json:"fallback,omitempty"`
	Refusal   *Refusal `json:"refusal,omitempty"`
	LatencyMs int64    `json:"latency_ms"`
}
