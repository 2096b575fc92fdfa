// Package runlog persists a per-run audit trail for the extraction
// pipeline to SQLite, asynchronously. One row per pipeline run records
// the mime type, input size, terminal status (complete or the failure
// kind), the failing plugin if any, and the run duration.
//
// Persistence is best-effort: a full buffer drops entries and a failing
// store never blocks or fails a pipeline run.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, _ := dbopen.Open("db/runs.db", dbopen.WithMkdirAll())
//	store := runlog.NewStore(db)
//	store.Init()
//	defer store.Close()
package runlog

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Schema for the pipeline_runs table. Applied by Store.Init().
const Schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	input_bytes INTEGER NOT NULL,
	status TEXT NOT NULL,
	plugin TEXT,
	error TEXT,
	duration_us INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_ts ON pipeline_runs(timestamp);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_failed ON pipeline_runs(status) WHERE status != 'complete';
`

// Entry is a single pipeline run record.
type Entry struct {
	RunID      string `json:"run_id"`
	MimeType   string `json:"mime_type"`
	InputBytes int64  `json:"input_bytes"`
	Status     string `json:"status"`           // "complete" or a failure kind
	Plugin     string `json:"plugin,omitempty"` // failing plugin, if any
	Error      string `json:"error,omitempty"`
	DurationUS int64  `json:"duration_us"`
	Timestamp  int64  `json:"timestamp"` // unix microseconds
}

// Store persists run entries to a SQLite table asynchronously.
type Store struct {
	db   *sql.DB
	ch   chan *Entry
	done chan struct{}
	once sync.Once
}

// NewStore creates a run log backed by the given database connection
// and starts its flush goroutine.
func NewStore(db *sql.DB) *Store {
	s := &Store{
		db:   db,
		ch:   make(chan *Entry, 1024),
		done: make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Init creates the pipeline_runs table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// RecordAsync queues an entry for async persistence. Non-blocking;
// drops the entry if the buffer is full.
func (s *Store) RecordAsync(e *Entry) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMicro()
	}
	select {
	case s.ch <- e:
	default:
		// buffer full — drop silently to avoid backpressure on runs
	}
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, mime_type, input_bytes, status, plugin, error, duration_us, timestamp
		FROM pipeline_runs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var plugin, errMsg sql.NullString
		if err := rows.Scan(&e.RunID, &e.MimeType, &e.InputBytes, &e.Status, &plugin, &errMsg, &e.DurationUS, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Plugin = plugin.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close drains the buffer and stops the flush goroutine.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return nil
}

func (s *Store) flushLoop() {
	defer close(s.done)

	batch := make([]*Entry, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("runlog: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO pipeline_runs (run_id, mime_type, input_bytes, status, plugin, error, duration_us, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("runlog: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.RunID, e.MimeType, e.InputBytes, e.Status, e.Plugin, e.Error, e.DurationUS, e.Timestamp); err != nil {
			slog.Error("runlog: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("runlog: commit", "error", err)
	}
}
