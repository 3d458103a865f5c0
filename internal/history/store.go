// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records download outcomes in a SQLite database so runs
// can be inspected and their failures retried later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdfgrab/pkg/types"
)

// DefaultPath is the database location relative to the output directory.
const DefaultPath = ".pdfgrab/history.db"

// ErrNoRuns is returned when the database holds no runs.
var ErrNoRuns = errors.New("history: no runs recorded")

// Run summarizes one invocation of the downloader.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
}

// Entry is one recorded outcome.
type Entry struct {
	types.Outcome `yaml:",inline"`

	RunID      string    `json:"run_id" yaml:"run_id"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Store manages the history database. Record is not safe for concurrent
// use with BeginRun.
type Store struct {
	db    *sql.DB
	runID string
	now   func() time.Time
}

// Open opens or creates the database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			filename TEXT,
			path TEXT,
			bytes INTEGER,
			kind TEXT,
			reason TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun starts a new run and returns its ID. Subsequent Record calls
// attach to it.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, formatTime(s.now()),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	s.runID = id
	return id, nil
}

// RunID returns the current run, or "" before BeginRun.
func (s *Store) RunID() string {
	return s.runID
}

// Record stores an outcome under the current run, starting one if needed.
func (s *Store) Record(ctx context.Context, o types.Outcome) error {
	if s.runID == "" {
		if _, err := s.BeginRun(ctx); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, url, status, filename, path, bytes, kind, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, o.URL, string(o.Status), o.Filename, o.Path, o.Bytes, string(o.Kind), o.Reason,
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("inserting outcome: %w", err)
	}
	return nil
}

// FinishRun stamps the current run with its end time and per-URL totals.
// A URL counts as succeeded if any attempt in the run succeeded.
func (s *Store) FinishRun(ctx context.Context) (Run, error) {
	if s.runID == "" {
		return Run{}, ErrNoRuns
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			total = (SELECT COUNT(DISTINCT url) FROM outcomes WHERE run_id = runs.id),
			succeeded = (SELECT COUNT(DISTINCT url) FROM outcomes WHERE run_id = runs.id AND status = 'success')
		WHERE id = ?`,
		formatTime(s.now()), s.runID,
	)
	if err != nil {
		return Run{}, fmt.Errorf("finishing run: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE runs SET failed = total - succeeded WHERE id = ?`, s.runID,
	); err != nil {
		return Run{}, fmt.Errorf("finishing run: %w", err)
	}
	return s.GetRun(ctx, s.runID)
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), total, succeeded, failed FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNoRuns)
	}
	return r, err
}

// Runs lists the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), total, succeeded, failed
		 FROM runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastRunID returns the ID of the most recently started run.
func (s *Store) LastRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("querying last run: %w", err)
	}
	return id, nil
}

// FailedURLs returns the URLs of a run that never succeeded, in the order
// they were first attempted.
func (s *Store) FailedURLs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url FROM outcomes WHERE run_id = ?
		GROUP BY url
		HAVING SUM(status = 'success') = 0
		ORDER BY MIN(seq)`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failed urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// QueryOptions filters Entries.
type QueryOptions struct {
	RunID      string
	FailedOnly bool
	Limit      int
}

// Entries returns recorded outcomes, newest first.
func (s *Store) Entries(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	query := `SELECT run_id, url, status, COALESCE(filename, ''), COALESCE(path, ''), COALESCE(bytes, 0),
		COALESCE(kind, ''), COALESCE(reason, ''), recorded_at FROM outcomes WHERE 1=1`
	var args []any
	if opts.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, opts.RunID)
	}
	if opts.FailedOnly {
		query += ` AND status = ?`
		args = append(args, string(types.StatusFailure))
	}
	query += ` ORDER BY seq DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                      Entry
			status, kind, recorded string
		)
		if err := rows.Scan(&e.RunID, &e.URL, &status, &e.Filename, &e.Path, &e.Bytes,
			&kind, &e.Reason, &recorded); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.Status = types.OutcomeStatus(status)
		e.Kind = types.FailureKind(kind)
		e.RecordedAt = parseTime(recorded)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportYAML writes the selected entries to w as a YAML sequence.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts QueryOptions) error {
	entries, err := s.Entries(ctx, opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                 Run
		started, finished string
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.Total, &r.Succeeded, &r.Failed); err != nil {
		return Run{}, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
