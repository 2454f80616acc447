package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/RecallAPI/internal/adapter"
	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, nothing left but logging
		logRH.Error("Error encoding response", "error", err)
	}
}

func traceIdOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "traceId", traceIdOf(ctx), "error", ctx.Err())
		return false
	}
	return true
}

// WriteErrorResponse writes the common error body. reason may be empty.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, traceId, reason, message string) {
	writeJsonResponse(w, httpCode, adapter.ErrorBody(httpCode, reason, message, traceId))
}

func writeRefusal(w http.ResponseWriter, r *http.Request, refusal *queryModel.Refusal) {
	WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(r.Context()), string(refusal.Reason), refusal.Message)
}

// writeDomainError maps an error chain onto an HTTP status.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		logRH.Error("request failed", "traceId", traceIdOf(r.Context()), "path", r.URL.Path, "error", err)
		message = "Internal server error"
	}
	WriteErrorResponse(w, code, traceIdOf(r.Context()), string(ragErrors.Reason(err)), message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ragErrors.ErrCorpusFull):
		return http.StatusConflict
	case errors.Is(err, ragErrors.ErrDocumentNotFound):
		return http.StatusNotFound
	case ragErrors.IsClientInput(err), ragErrors.IsIngestion(err), errors.Is(err, ragErrors.ErrIndexUnavailable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func getTargetDirectory(dir string) (string, error) {
	if dir == "" {
		dir = config.UploadDir
	}
	if !filepath.IsAbs(dir) {
		root, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}

func decodeBody(r *http.Request, target any) error {
	defer func() {
		if err := r.Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(target)
}
