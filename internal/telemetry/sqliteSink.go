package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createTelemetryTable = `
CREATE TABLE IF NOT EXISTS telemetry (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp  TEXT    NOT NULL,
	mode       TEXT    NOT NULL,
	pathway    TEXT    NOT NULL,
	query      TEXT    NOT NULL,
	latency_ms INTEGER NOT NULL,
	tokens     INTEGER NOT NULL,
	cost_usd   REAL    NOT NULL,
	metadata   TEXT    NOT NULL
)`

// SQLiteSink keeps telemetry in a local table so it can be queried later.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening telemetry database: %w", err)
	}
	if _, err := db.Exec(createTelemetryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating telemetry table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Append(ctx context.Context, rec Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO telemetry (timestamp, mode, pathway, query, latency_ms, tokens, cost_usd, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Mode, rec.Pathway, rec.Query,
		rec.LatencyMs, rec.Tokens, rec.Cost, string(meta))
	return err
}

// Recent returns up to n of the latest records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, mode, pathway, query, latency_ms, tokens, cost_usd, metadata
		 FROM telemetry ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			timestamp string
			meta      string
		)
		if err := rows.Scan(&timestamp, &rec.Mode, &rec.Pathway, &rec.Query, &rec.LatencyMs, &rec.Tokens, &rec.Cost, &meta); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		_ = json.Unmarshal([]byte(meta), &rec.Metadata)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
