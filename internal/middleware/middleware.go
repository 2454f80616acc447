package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

const TraceHeader = "X-Trace-Id"

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	traceId    string
	limiter    *IPRateLimiter
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var logMW = logger_i.NewLogger("middleware")

// Wrap runs next behind trace injection and the shared rate limiter.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return WrapWith(limiterInstance, next)
}

// WrapWith is Wrap with an explicit limiter; a nil limiter disables rate limiting.
func WrapWith(limiter *IPRateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := processRequest(requestResponseStruct{req: r, writer: rec, limiter: limiter})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc()
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logMW
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	if re.limiter != nil {
		re = rateLimiter(re)
	}
	return re
}

// routeLabel prefers the chi pattern so path parameters do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
