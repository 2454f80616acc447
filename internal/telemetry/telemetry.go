package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

// Record is one line of request telemetry.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Mode      string         `json:"mode"`
	Pathway   string         `json:"pathway"`
	Query     string         `json:"query"`
	LatencyMs int64          `json:"latency_ms"`
	Tokens    int            `json:"tokens"`
	Cost      float64        `json:"cost_usd"`
	Metadata  map[string]any `json:"metadata"`
}

// Sink appends records somewhere durable.
type Sink interface {
	Name() string
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Recorder fans a record out to every sink. Sink failures are logged and
// counted, never returned to the caller.
type Recorder struct {
	sinks  []Sink
	logger *logger_i.Logger
}

func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: logger_i.NewLogger("telemetry"),
	}
}

func (r *Recorder) Record(ctx context.Context, rec Record) {
	if r == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.Query = truncate(rec.Query, config.TelemetryQueryMaxChars)
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}

	// a cancelled request still gets its record written
	ctx = context.WithoutCancel(ctx)
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, rec); err != nil {
			r.logger.Warn("telemetry sink failed", "sink", sink.Name(), "error", err)
			metrics.CaptureTelemetryFailure(sink.Name())
		}
	}
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, sink := range r.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
