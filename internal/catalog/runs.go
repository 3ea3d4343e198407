// Package catalog records export runs and weight rescale factors in
// Postgres. With exports flying between two machines, this is the one
// place that answers "which runs exist, did they finish, and what
// calibration came out of them".
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpol-dev/visread/internal/export"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunNotFound reports a run_id the catalog has never seen.
var ErrRunNotFound = errors.New("catalog: run not found")

// Run is one catalog row.
type Run struct {
	RunID      string
	Table      string
	Telescope  string
	Source     string
	Status     string
	Formats    []string
	Files      int
	Bytes      int64
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStore tracks export runs in the visread_runs table.
type RunStore struct {
	db *pgxpool.Pool
}

// NewPool opens a pgx pool for dsn and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("catalog: database url is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	return pool, nil
}

// NewRunStore ensures the schema and wraps the pool.
func NewRunStore(ctx context.Context, db *pgxpool.Pool) (*RunStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS visread_runs (
  run_id text PRIMARY KEY,
  table_name text NOT NULL,
  telescope text NOT NULL DEFAULT '',
  source text NOT NULL DEFAULT '',
  status text NOT NULL,
  formats text[] NOT NULL DEFAULT '{}',
  files integer NOT NULL DEFAULT 0,
  bytes bigint NOT NULL DEFAULT 0,
  error text NOT NULL DEFAULT '',
  started_at timestamptz NOT NULL DEFAULT now(),
  finished_at timestamptz
);
`
	if _, err := db.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("catalog: ensure visread_runs: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Begin registers a run as running. Re-running an export under the same
// run_id resets its row.
func (s *RunStore) Begin(ctx context.Context, runID, table, telescope, source string) error {
	if runID == "" {
		return errors.New("catalog: run_id is required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO visread_runs (run_id, table_name, telescope, source, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id) DO UPDATE SET
  table_name = EXCLUDED.table_name,
  telescope = EXCLUDED.telescope,
  source = EXCLUDED.source,
  status = EXCLUDED.status,
  files = 0,
  bytes = 0,
  error = '',
  started_at = now(),
  finished_at = NULL;`,
		runID, table, telescope, source, StatusRunning)
	return err
}

// Finish marks the run complete with the totals from its manifest.
func (s *RunStore) Finish(ctx context.Context, man *export.Manifest) error {
	if man == nil || man.RunID == "" {
		return errors.New("catalog: manifest with run_id is required")
	}
	var bytes int64
	for _, f := range man.Files {
		bytes += f.Bytes
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO visread_runs (run_id, table_name, telescope, source, status, formats, files, bytes, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (run_id) DO UPDATE SET
  status = EXCLUDED.status,
  formats = EXCLUDED.formats,
  files = EXCLUDED.files,
  bytes = EXCLUDED.bytes,
  error = '',
  finished_at = now();`,
		man.RunID, man.Table, man.Telescope, man.Source, StatusComplete,
		man.Formats, len(man.Files), bytes)
	return err
}

// Fail marks the run failed and records the cause.
func (s *RunStore) Fail(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.Exec(ctx, `
UPDATE visread_runs SET status = $2, error = $3, finished_at = now() WHERE run_id = $1;`,
		runID, StatusFailed, msg)
	return err
}

// Get returns one run, or ErrRunNotFound.
func (s *RunStore) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRow(ctx, `
SELECT run_id, table_name, telescope, source, status, formats, files, bytes, error, started_at, finished_at
FROM visread_runs WHERE run_id = $1;`, runID)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// Recent returns the newest runs, most recently started first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
SELECT run_id, table_name, telescope, source, status, formats, files, bytes, error, started_at, finished_at
FROM visread_runs ORDER BY started_at DESC, run_id LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	err := row.Scan(&r.RunID, &r.Table, &r.Telescope, &r.Source, &r.Status,
		&r.Formats, &r.Files, &r.Bytes, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}
