package adapter

import (
	"github.com/akolanti/RecallAPI/internal/api"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/rag/ingest"
)

func ToQueryResponse(resp queryModel.Response) api.QueryResponse {
	out := api.QueryResponse{
		Response:  resp.Answer,
		Mode:      string(resp.Mode),
		QuizType:  string(resp.QuizType),
		Pathway:   string(resp.Pathway),
		Fallback:  resp.Fallback,
		Sources:   nonNil(resp.Sources),
		Citations: ToCitations(resp.Citations),
		Tokens:    resp.Tokens,
		Cost:      resp.Cost,
		LatencyMs: resp.LatencyMs,
	}

	if resp.Mode == queryModel.ModeQuiz && resp.QuizType != queryModel.QuizTypeNone && !resp.Fallback {
		valid := resp.IsValidJSON
		out.IsValidJSON = &valid
		if valid {
			out.Response = resp.Quiz
		}
	}
	return out
}

func ToCitations(citations []queryModel.Citation) []api.Citation {
	out := make([]api.Citation, 0, len(citations))
	for _, c := range citations {
		out = append(out, api.Citation{
			DocumentId:   c.DocumentId,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			Score:        c.Score,
		})
	}
	return out
}

func ToValidateAnswerResponse(res queryModel.ValidationResult) api.ValidateAnswerResponse {
	return api.ValidateAnswerResponse{
		Validation: api.Validation{
			Correct:  res.Correct,
			Feedback: res.Feedback,
			Method:   string(res.Method),
		},
		LatencyMs: res.LatencyMs,
	}
}

func ToForfeitResponse(res queryModel.ForfeitResult) api.ForfeitResponse {
	return api.ForfeitResponse{
		Answer:    res.Answer,
		Sources:   nonNil(res.Sources),
		Fallback:  res.Fallback,
		LatencyMs: res.LatencyMs,
	}
}

func ToUploadResponse(doc commonModels.Document) api.UploadResponse {
	return api.UploadResponse{
		Success:    true,
		Message:    "Successfully uploaded " + doc.Name,
		Filename:   doc.Name,
		DocumentId: doc.Id,
		Pages:      doc.PageCount,
		Chunks:     doc.ChunkCount,
	}
}

func ToStatusResponse(status ingest.Status) api.StatusResponse {
	docs := make([]api.DocumentInfo, 0, len(status.Documents))
	for _, d := range status.Documents {
		docs = append(docs, api.DocumentInfo{
			Id:         d.Id,
			Name:       d.Name,
			Type:       string(d.ContentType),
			Pages:      d.PageCount,
			Chunks:     d.ChunkCount,
			IngestedAt: d.LastIngestTimestamp,
		})
	}
	return api.StatusResponse{
		DocumentsLoaded: len(docs) > 0 || status.TotalChunks > 0,
		TotalChunks:     status.TotalChunks,
		Documents:       docs,
	}
}

func ErrorBody(code int, reason, message, traceId string) api.ErrorResponse {
	return api.ErrorResponse{
		Error:   message,
		Reason:  reason,
		Code:    code,
		TraceId: traceId,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
