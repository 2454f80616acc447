package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var pipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_requests_total",
	Help: "Pipeline calls labelled by mode and pathway",
}, []string{"mode", "pathway"})

var safetyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "safety_rejections_total",
	Help: "Queries rejected before retrieval, labelled by reason",
}, []string{"reason"})

var telemetryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "telemetry_sink_failures_total",
	Help: "Telemetry records a sink failed to persist",
}, []string{"sink"})

var indexedChunks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexed_chunk_count",
	Help: "Number of chunks in the embedding index",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active ingestion workers",
})

// HttpStatusRecorder remembers the status code written by the wrapped handler.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (the MCP endpoint) working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func SetIndexedChunks(n int) {
	indexedChunks.Set(float64(n))
}

func CapturePipelineOutcome(mode, pathway string) {
	pipelineOutcomes.WithLabelValues(mode, pathway).Inc()
}

func CaptureSafetyRejection(reason string) {
	safetyRejections.WithLabelValues(reason).Inc()
}

func CaptureTelemetryFailure(sink string) {
	telemetryFailures.WithLabelValues(sink).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "pipeline_request_duration_seconds",
	Help:    "Total time spent handling a pipeline call.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"pathway"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureRequestMetrics(pathway string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(pathway).Observe(timeElapsed.Seconds())
}
