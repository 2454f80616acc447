package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/data/redisStore"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

// FromSettings opens every configured sink. The redis sink is skipped with a
// warning when no redis store is available.
func FromSettings(settings config.TelemetrySettings, redis *redisStore.Store) (*Recorder, error) {
	logger := logger_i.NewLogger("telemetry")
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, name := range settings.Sinks {
		switch strings.TrimSpace(name) {
		case config.TelemetrySinkJSONL:
			s, err := NewFileSink(settings.JSONLPath)
			if err != nil {
				closeAll()
				return nil, err
			}
			sinks = append(sinks, s)
		case config.TelemetrySinkSQLite:
			s, err := NewSQLiteSink(settings.SQLitePath)
			if err != nil {
				closeAll()
				return nil, err
			}
			sinks = append(sinks, s)
		case config.TelemetrySinkRedis:
			if redis == nil {
				logger.Warn("redis telemetry sink configured but redis is unavailable; skipping")
				continue
			}
			sinks = append(sinks, NewRedisSink(redis, settings.RedisKey))
		case "":
		default:
			closeAll()
			return nil, errors.Join(config.ErrInvalidSettings, fmt.Errorf("unknown telemetry sink %q", name))
		}
	}

	logger.Info("telemetry sinks ready", "count", len(sinks))
	return NewRecorder(sinks...), nil
}
