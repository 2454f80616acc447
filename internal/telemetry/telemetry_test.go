package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/data/redisStore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	records []Record
	err     error
}

func (m *memorySink) Name() string { return "memory" }
func (m *memorySink) Append(_ context.Context, rec Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}
func (m *memorySink) Close() error { return nil }

func TestRecorderFansOutAndSwallowsFailures(t *testing.T) {
	broken := &memorySink{err: errors.New("disk full")}
	good := &memorySink{}
	r := NewRecorder(broken, good)

	r.Record(context.Background(), Record{Mode: "summary", Pathway: "rag", Query: "what is entropy"})

	require.Len(t, good.records, 1)
	rec := good.records[0]
	assert.False(t, rec.Timestamp.IsZero())
	assert.NotNil(t, rec.Metadata)
	assert.Equal(t, "what is entropy", rec.Query)
}

func TestRecorderTruncatesQuery(t *testing.T) {
	sink := &memorySink{}
	NewRecorder(sink).Record(context.Background(), Record{Query: strings.Repeat("é", 150)})

	require.Len(t, sink.records, 1)
	assert.Equal(t, 100, len([]rune(sink.records[0].Query)))
}

func TestRecorderWritesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)
	defer sink.Close()

	NewRecorder(sink).Record(ctx, Record{Mode: "quiz", Pathway: "rejected"})

	recent, err := sink.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Record(context.Background(), Record{}) })
	assert.NoError(t, r.Close())
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "telemetry.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	r := NewRecorder(sink)
	r.Record(context.Background(), Record{Mode: "summary", Pathway: "rag", Tokens: 42, Metadata: map[string]any{"chunks_retrieved": 3}})
	r.Record(context.Background(), Record{Mode: "quiz", Pathway: "empty_context"})
	require.NoError(t, r.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "rag", lines[0]["pathway"])
	assert.EqualValues(t, 42, lines[0]["tokens"])
	assert.Contains(t, lines[0], "cost_usd")
	assert.Contains(t, lines[0], "latency_ms")
	assert.EqualValues(t, 3, lines[0]["metadata"].(map[string]any)["chunks_retrieved"])
}

func TestSQLiteSinkRecent(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	defer sink.Close()

	ts := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, Record{Timestamp: ts, Mode: "summary", Pathway: "rag", Query: "first", Cost: 0.25}))
	require.NoError(t, sink.Append(ctx, Record{Timestamp: ts, Mode: "quiz", Pathway: "generation_error", Query: "second"}))

	recent, err := sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "second", recent[0].Query)
	assert.True(t, recent[0].Timestamp.Equal(ts))

	all, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.InDelta(t, 0.25, all[1].Cost, 1e-9)
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisSink(redisStore.NewTestStore(client), "recall:telemetry")
	r := NewRecorder(sink)
	for _, q := range []string{"one", "two", "three"} {
		r.Record(context.Background(), Record{Mode: "summary", Pathway: "rag", Query: q})
	}

	stored, err := mr.List("recall:telemetry")
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	recent, err := sink.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Query)
	assert.Equal(t, "three", recent[1].Query)
}

func TestFromSettings(t *testing.T) {
	dir := t.TempDir()
	settings := config.TelemetrySettings{
		Sinks:      []string{config.TelemetrySinkJSONL, config.TelemetrySinkSQLite, config.TelemetrySinkRedis},
		JSONLPath:  filepath.Join(dir, "t.jsonl"),
		SQLitePath: filepath.Join(dir, "t.db"),
	}
	r, err := FromSettings(settings, nil)
	require.NoError(t, err)
	assert.Len(t, r.sinks, 2)
	require.NoError(t, r.Close())

	_, err = FromSettings(config.TelemetrySettings{Sinks: []string{"kafka"}}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}
