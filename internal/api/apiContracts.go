package api

import "time"

// requests---------------------

type QueryRequest struct {
	Query    string `json:"query" example:"What is gradient descent?"`
	Mode     string `json:"mode,omitempty" example:"summary" enums:"summary,quiz"`
	QuizType string `json:"quiz_type,omitempty" example:"multiple_choice" enums:"multiple_choice,short_answer"`
}

type ValidateAnswerRequest struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
}

type ForfeitRequest struct {
	Question string `json:"question"`
}

// responses---------------------

type Citation struct {
	DocumentId   string  `json:"document_id"`
	DocumentName string  `json:"document_name" example:"lecture1.pdf"`
	ChunkIndex   int     `json:"chunk_index" example:"0"`
	Score        float64 `json:"score" example:"0.82"`
}

type QueryResponse struct {
	// Response is the generated text, or the parsed quiz object for structured quiz types.
	Response    any        `json:"response"`
	Mode        string     `json:"mode" example:"summary"`
	QuizType    string     `json:"quiz_type,omitempty"`
	IsValidJSON *bool      `json:"is_valid_json,omitempty"`
	Pathway     string     `json:"pathway" example:"rag"`
	Fallback    bool       `json:"fallback,omitempty"`
	Sources     []string   `json:"sources"`
	Citations   []Citation `json:"citations"`
	Tokens      int        `json:"tokens"`
	Cost        float64    `json:"cost_usd"`
	LatencyMs   int64      `json:"latency_ms"`
}

type Validation struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
	Method   string `json:"method" example:"exact"`
}

type ValidateAnswerResponse struct {
	Validation Validation `json:"validation"`
	LatencyMs  int64      `json:"latency_ms"`
}

type ForfeitResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Fallback  bool     `json:"fallback,omitempty"`
	LatencyMs int64    `json:"latency_ms"`
}

type UploadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message" example:"Successfully uploaded lecture1.pdf"`
	Filename   string `json:"filename"`
	DocumentId string `json:"document_id"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

type DocumentInfo struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

type StatusResponse struct {
	DocumentsLoaded bool           `json:"documents_loaded"`
	TotalChunks     int            `json:"total_chunks"`
	Documents       []DocumentInfo `json:"documents"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"Query is too long."`
	Reason  string `json:"reason,omitempty" example:"TooLong"`
	Code    int    `json:"code" example:"400"`
	TraceId string `json:"trace_id,omitempty"`
}
