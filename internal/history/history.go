// Package history keeps an audit trail of collection runs in SQLite, one row
// per stream invocation.
package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const driver = "sqlite3"

const schema = `
CREATE TABLE IF NOT EXISTS stream_runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL,
	input             TEXT NOT NULL,
	stream            TEXT NOT NULL,
	status            TEXT NOT NULL,
	lower_bound       INTEGER,
	checkpoint_before INTEGER,
	checkpoint_after  INTEGER,
	emitted           INTEGER NOT NULL DEFAULT 0,
	dropped           INTEGER NOT NULL DEFAULT 0,
	error             TEXT NOT NULL DEFAULT '',
	started_at        TIMESTAMP NOT NULL,
	finished_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stream_runs_run ON stream_runs (run_id);
CREATE INDEX IF NOT EXISTS idx_stream_runs_started ON stream_runs (started_at);
`

var ErrNotFound = errors.New("history: not found")

// StreamRun is one stream's outcome within a run. Nullable columns are nil
// when the stream never got that far (disabled, rate limited, no cursor).
type StreamRun struct {
	RunID            string
	Input            string
	Stream           string
	Status           string
	LowerBound       *int64
	CheckpointBefore *int64
	CheckpointAfter  *int64
	Emitted          int
	Dropped          int
	Error            string
	StartedAt        time.Time
	FinishedAt       time.Time
}

type DB struct {
	*sql.DB
}

// Open connects to dsn (a file path or ":memory:") and applies the schema.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

// RecordRuns inserts all rows of one run in a single transaction.
func (db *DB) RecordRuns(ctx context.Context, runs []StreamRun) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stream_runs (run_id, input, stream, status, lower_bound, checkpoint_before,
			checkpoint_after, emitted, dropped, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range runs {
		if _, err := stmt.ExecContext(ctx,
			r.RunID,
			r.Input,
			r.Stream,
			r.Status,
			nullInt(r.LowerBound),
			nullInt(r.CheckpointBefore),
			nullInt(r.CheckpointAfter),
			r.Emitted,
			r.Dropped,
			r.Error,
			r.StartedAt.UTC(),
			r.FinishedAt.UTC(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recent returns the newest rows first, optionally filtered by input.
func (db *DB) Recent(ctx context.Context, input string, limit int) ([]StreamRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, input, stream, status, lower_bound, checkpoint_before, checkpoint_after,
			emitted, dropped, error, started_at, finished_at
		FROM stream_runs
		WHERE (? = '' OR input = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, input, input, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Run returns every stream row recorded under runID.
func (db *DB) Run(ctx context.Context, runID string) ([]StreamRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, input, stream, status, lower_bound, checkpoint_before, checkpoint_after,
			emitted, dropped, error, started_at, finished_at
		FROM stream_runs
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func scanRuns(rows *sql.Rows) ([]StreamRun, error) {
	var out []StreamRun
	for rows.Next() {
		var (
			r                 StreamRun
			lb, before, after sql.NullInt64
		)
		if err := rows.Scan(
			&r.RunID,
			&r.Input,
			&r.Stream,
			&r.Status,
			&lb,
			&before,
			&after,
			&r.Emitted,
			&r.Dropped,
			&r.Error,
			&r.StartedAt,
			&r.FinishedAt,
		); err != nil {
			return nil, err
		}
		r.LowerBound = ptrInt(lb)
		r.CheckpointBefore = ptrInt(before)
		r.CheckpointAfter = ptrInt(after)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
