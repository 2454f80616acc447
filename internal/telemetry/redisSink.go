package telemetry

import (
	"context"
	"encoding/json"

	"github.com/akolanti/RecallAPI/internal/data/redisStore"
)

// RedisSink pushes each record onto a redis list as JSON.
type RedisSink struct {
	store *redisStore.Store
	key   string
}

func NewRedisSink(store *redisStore.Store, key string) *RedisSink {
	return &RedisSink{store: store, key: key}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.store.ListPush(ctx, s.key, data)
}

// Recent returns up to n of the latest records, oldest first.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]Record, error) {
	raw, err := s.store.ListGetLast(ctx, s.key, n)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, line := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close is a no-op; the redis client is shared and closed with its store.
func (s *RedisSink) Close() error { return nil }
