package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/config"
	"scribe/internal/protocol"
)

// retryInterval is how often a blocked Dequeue re-polls the jobs table.
const retryInterval = 50 * time.Millisecond

// Store is the durable, priority-ordered job store backed by SQLite. Jobs are
// dispatched in ascending (priority, insertion sequence) order, so lower
// priority values win and equal priorities drain FIFO.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue persists a job and returns its identifier. The queue is unbounded;
// submitting the same job ID twice yields two independent entries.
func (s *Store) Enqueue(ctx context.Context, job *Job) (protocol.ID, error) {
	if job == nil {
		return protocol.ID{}, errors.New("job is nil")
	}
	if job.ID.IsZero() {
		return protocol.ID{}, errors.New("job id is unset")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (job_id, priority, enqueued_at, payload) VALUES (?, ?, ?, ?)`,
		job.ID[:],
		job.Priority,
		now.Format(time.RFC3339Nano),
		job.Payload,
	)
	if err != nil {
		return protocol.ID{}, fmt.Errorf("insert job: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return protocol.ID{}, fmt.Errorf("last insert id: %w", err)
	}
	job.Seq = seq
	job.EnqueuedAt = now
	return job.ID, nil
}

// Dequeue atomically pops the most urgent job, blocking up to timeout when
// the queue is empty. A nil job with nil error means the wait timed out; the
// caller treats that as a legitimate empty condition.
func (s *Store) Dequeue(ctx context.Context, workerID string, timeout time.Duration) (*Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := s.popOnce(ctx)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		wait := retryInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// popOnce removes and returns the head job, or nil when the table is empty.
// The delete selects its own victim row, so concurrent consumers on separate
// pool connections can never claim the same job.
func (s *Store) popOnce(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`DELETE FROM jobs
		 WHERE seq = (SELECT seq FROM jobs ORDER BY priority ASC, seq ASC LIMIT 1)
		 RETURNING seq, job_id, priority, enqueued_at, payload`,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop head job: %w", err)
	}
	return job, nil
}

// Recover reports how many persisted jobs survived a restart. Rows are left
// in place; workers drain them through the normal dispatch order. Jobs that
// were already handed to a worker when the previous process died are gone.
func (s *Store) Recover(ctx context.Context) (int, error) {
	return s.Len(ctx)
}

// Len returns the number of queued jobs.
func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// Stats summarizes queue depth and the priority spread of waiting jobs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		minP  sql.NullInt64
		maxP  sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), MIN(priority), MAX(priority) FROM jobs`)
	if err := row.Scan(&stats.Depth, &minP, &maxP); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	if minP.Valid {
		stats.MinPriority = int32(minP.Int64)
	}
	if maxP.Valid {
		stats.MaxPriority = int32(maxP.Int64)
	}
	return stats, nil
}

// List returns up to limit waiting jobs in dispatch order, without payloads.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT seq, job_id, priority, enqueued_at FROM jobs ORDER BY priority ASC, seq ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			job      Job
			idRaw    []byte
			enqueued string
		)
		if err := rows.Scan(&job.Seq, &idRaw, &job.Priority, &enqueued); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		id, err := protocol.IDFromBytes(idRaw)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", job.Seq, err)
		}
		job.ID = id
		if ts, err := time.Parse(time.RFC3339Nano, enqueued); err == nil {
			job.EnqueuedAt = ts
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// Clear removes all queued jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job      Job
		idRaw    []byte
		enqueued string
	)
	if err := scanner.Scan(&job.Seq, &idRaw, &job.Priority, &enqueued, &job.Payload); err != nil {
		return nil, err
	}
	id, err := protocol.IDFromBytes(idRaw)
	if err != nil {
		return nil, err
	}
	job.ID = id
	if ts, err := time.Parse(time.RFC3339Nano, enqueued); err == nil {
		job.EnqueuedAt = ts
	}
	return &job, nil
}
