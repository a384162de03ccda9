package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is the durable per-video outcome store. It is the sole mechanism
// preventing repeated paid transcription across runs. One handle is shared by
// the orchestrator and the fallback workers; implementations must tolerate
// concurrent writes to different video ids.
type Cache interface {
	// Get returns the cached outcome for a video, if any. Corrupt entries
	// read as misses, never as errors.
	Get(ctx context.Context, videoID string) (TranscriptionOutcome, bool)
	// Put stores an outcome, overwriting any prior entry for the same id.
	// Idempotent, last-write-wins.
	Put(ctx context.Context, videoID string, outcome TranscriptionOutcome) error
	Close() error
}

// SQLiteCache persists outcomes in a local SQLite database so re-runs skip
// everything already resolved.
type SQLiteCache struct {
	db   *sql.DB
	path string
}

// OpenCache opens (or creates) the outcome cache at path.
func OpenCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("cache: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: apply pragma %q: %w", pragma, err)
		}
	}

	if err := initCacheSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}

	return &SQLiteCache{db: db, path: path}, nil
}

func initCacheSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS outcomes (
		video_id   TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		id               TEXT PRIMARY KEY,
		started_at       TEXT NOT NULL,
		finished_at      TEXT NOT NULL,
		cached           INTEGER NOT NULL,
		native_success   INTEGER NOT NULL,
		fallback_success INTEGER NOT NULL,
		needs_fallback   INTEGER NOT NULL,
		failed           INTEGER NOT NULL
	)`)
	return err
}

// Get returns the cached outcome for videoID. Unreadable or corrupt entries
// are logged and treated as misses: redoing work beats crashing.
func (c *SQLiteCache) Get(ctx context.Context, videoID string) (TranscriptionOutcome, bool) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM outcomes WHERE video_id = ?`, videoID).Scan(&payload)
	switch {
	case err == sql.ErrNoRows:
		incrCacheMisses()
		return TranscriptionOutcome{}, false
	case err != nil:
		slog.Warn("cache: read failed, treating as miss",
			slog.String("video", videoID), slog.Any("error", err))
		incrCacheMisses()
		return TranscriptionOutcome{}, false
	}

	var outcome TranscriptionOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil || !outcome.Valid() {
		slog.Warn("cache: corrupt entry, treating as miss",
			slog.String("video", videoID), slog.Any("error", err))
		incrCacheMisses()
		return TranscriptionOutcome{}, false
	}

	incrCacheHits()
	return outcome, true
}

// Put stores outcome under videoID, replacing any prior entry.
func (c *SQLiteCache) Put(ctx context.Context, videoID string, outcome TranscriptionOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", videoID, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO outcomes (video_id, status, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
			status = excluded.status,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		videoID, string(outcome.Status), string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", videoID, err)
	}
	return nil
}

// All returns every cached outcome, ordered by video id. Corrupt entries are
// skipped with a warning. Used by the export path and operability tooling.
func (c *SQLiteCache) All(ctx context.Context) ([]TranscriptionOutcome, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT video_id, payload FROM outcomes ORDER BY video_id`)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	var outcomes []TranscriptionOutcome
	for rows.Next() {
		var videoID, payload string
		if err := rows.Scan(&videoID, &payload); err != nil {
			return nil, fmt.Errorf("cache: scan: %w", err)
		}
		var outcome TranscriptionOutcome
		if err := json.Unmarshal([]byte(payload), &outcome); err != nil || !outcome.Valid() {
			slog.Warn("cache: skipping corrupt entry", slog.String("video", videoID))
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// RecordRun persists the run-level summary record.
func (c *SQLiteCache) RecordRun(ctx context.Context, report *Report) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, cached, native_success, fallback_success, needs_fallback, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.Cached, report.NativeSuccess, report.FallbackSuccess,
		report.NeedsFallback, report.Failed)
	if err != nil {
		return fmt.Errorf("cache: record run %s: %w", report.RunID, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
