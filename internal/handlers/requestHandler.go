package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/RecallAPI/internal/adapter"
	"github.com/akolanti/RecallAPI/internal/adapter/utils"
	"github.com/akolanti/RecallAPI/internal/api"
	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/rag"
	"github.com/akolanti/RecallAPI/internal/rag/ingest"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

var logRH = logger_i.NewLogger("Request Handler")

// Corpus is the slice of the ingestion service the handlers need.
type Corpus interface {
	IngestFile(ctx context.Context, path, name string) (commonModels.Document, error)
	Remove(ctx context.Context, docId string) error
	Reset(ctx context.Context) error
	Status(ctx context.Context) (ingest.Status, error)
}

type Handler struct {
	corpus         Corpus
	ragService     rag.Service
	uploadDir      string
	maxUploadBytes int64
}

func NewHandler(corpus Corpus, ragService rag.Service, uploadDir string) *Handler {
	return &Handler{
		corpus:         corpus,
		ragService:     ragService,
		uploadDir:      uploadDir,
		maxUploadBytes: config.MaxUploadBytes,
	}
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadHandler godoc
// @Summary      Upload lecture material
// @Description  Extracts, chunks and indexes a PDF, DOCX, ODT, RTF, TXT or MD file. Uploading a file with the same name replaces the earlier version.
// @Tags         Corpus
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "The lecture file"
// @Success      200  {object}  api.UploadResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing file, unsupported type, unreadable or empty document"
// @Failure      409  {object}  api.ErrorResponse  "Document limit reached"
// @Failure      500  {object}  api.ErrorResponse
// @Router       /upload [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	traceId := traceIdOf(r.Context())

	targetDir, err := getTargetDirectory(h.uploadDir)
	if err != nil {
		logRH.Error("Couldn't get target directory", "traceId", traceId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, traceId, "", "Storage error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "File too large or bad request")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "No file provided")
		return
	}
	defer fileReader.Close()

	name := filepath.Base(fileMetadata.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "No file provided")
		return
	}

	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	if err := saveUpload(tempFilePath, fileReader); err != nil {
		logRH.Error("Couldn't store upload", "traceId", traceId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, traceId, "", "Write error")
		return
	}
	defer func() {
		if err := os.Remove(tempFilePath); err != nil {
			logRH.Warn("Couldn't remove temp upload", "path", tempFilePath, "error", err)
		}
	}()

	doc, err := h.corpus.IngestFile(r.Context(), tempFilePath, name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(doc))
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

// QueryHandler godoc
// @Summary      Ask about the uploaded lectures
// @Description  Summary mode answers the query from the retrieved lecture chunks. Quiz mode builds a question; with an empty query it picks a random chunk.
// @Tags         Study
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest  true  "Query, mode and optional quiz type"
// @Success      200      {object}  api.QueryResponse
// @Failure      400      {object}  api.ErrorResponse  "Rejected query or nothing uploaded yet"
// @Router       /query [post]
func (h *Handler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	traceId := traceIdOf(r.Context())

	var requestData api.QueryRequest
	if err := decodeBody(r, &requestData); err != nil {
		logRH.Warn("Bad query request", "traceId", traceId, "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "Bad Request")
		return
	}

	req := queryModel.Request{
		TraceId:  traceId,
		Query:    requestData.Query,
		Mode:     queryModel.ParseMode(requestData.Mode),
		QuizType: queryModel.ParseQuizType(requestData.QuizType),
	}

	var resp queryModel.Response
	if req.Mode == queryModel.ModeQuiz && strings.TrimSpace(req.Query) == "" {
		var err error
		resp, err = h.ragService.RandomQuiz(r.Context(), req.QuizType)
		if err != nil {
			if rag.IsEmptyCorpus(err) {
				WriteErrorResponse(w, http.StatusBadRequest, traceId, "IndexUnavailable", "Please upload lecture PDFs before asking questions.")
				return
			}
			writeDomainError(w, r, err)
			return
		}
	} else {
		resp = h.ragService.Handle(r.Context(), req)
	}

	if resp.Refused() {
		writeRefusal(w, r, resp.Refusal)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(resp))
}

// ValidateAnswerHandler godoc
// @Summary      Check a quiz answer
// @Description  Compares the student's answer with the expected one, asking the model when they differ.
// @Tags         Study
// @Accept       json
// @Produce      json
// @Param        request  body      api.ValidateAnswerRequest  true  "Question, answer and expected answer"
// @Success      200      {object}  api.ValidateAnswerResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /validate_answer [post]
func (h *Handler) ValidateAnswerHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	traceId := traceIdOf(r.Context())

	var requestData api.ValidateAnswerRequest
	if err := decodeBody(r, &requestData); err != nil || !ValidateAnswerRequest(requestData) {
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "question and correct_answer are required")
		return
	}

	res := h.ragService.ValidateAnswer(r.Context(), queryModel.ValidationRequest{
		Question:      requestData.Question,
		Answer:        requestData.Answer,
		CorrectAnswer: requestData.CorrectAnswer,
	})
	if res.Refusal != nil {
		writeRefusal(w, r, res.Refusal)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToValidateAnswerResponse(res))
}

// ForfeitHandler godoc
// @Summary      Reveal the answer
// @Description  Answers a quiz question the student gave up on, grounded in the lecture content.
// @Tags         Study
// @Accept       json
// @Produce      json
// @Param        request  body      api.ForfeitRequest  true  "The quiz question"
// @Success      200      {object}  api.ForfeitResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /forfeit [post]
func (h *Handler) ForfeitHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	traceId := traceIdOf(r.Context())

	var requestData api.ForfeitRequest
	if err := decodeBody(r, &requestData); err != nil || strings.TrimSpace(requestData.Question) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, traceId, "", "question is required")
		return
	}

	res := h.ragService.Forfeit(r.Context(), requestData.Question)
	if res.Refusal != nil {
		writeRefusal(w, r, res.Refusal)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToForfeitResponse(res))
}

// StatusHandler godoc
// @Summary      Corpus status
// @Tags         Corpus
// @Produce      json
// @Success      200  {object}  api.StatusResponse
// @Router       /status [get]
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.corpus.Status(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToStatusResponse(status))
}

// DeleteDocumentHandler godoc
// @Summary      Remove one document
// @Tags         Corpus
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.StatusResponse  "Corpus status after removal"
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [delete]
func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if id == "" {
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(r.Context()), "", "document id is required")
		return
	}
	if err := h.corpus.Remove(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.StatusHandler(w, r)
}

// ResetHandler godoc
// @Summary      Clear the corpus
// @Description  Drops every indexed chunk and catalog entry.
// @Tags         Corpus
// @Produce      json
// @Success      200  {object}  api.StatusResponse
// @Router       /reset [post]
func (h *Handler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.corpus.Reset(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.StatusHandler(w, r)
}

// ValidateAnswerRequest checks the fields the gate does not. An empty answer
// is left to the gate so it comes back as an EmptyInput refusal.
func ValidateAnswerRequest(req api.ValidateAnswerRequest) bool {
	return strings.TrimSpace(req.Question) != "" && strings.TrimSpace(req.CorrectAnswer) != ""
}
