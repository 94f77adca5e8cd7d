package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/pkg/repository"
)

// JobStatus is the lifecycle state of one background processing job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one durable unit of background work: run the processing phase for
// an upload batch. Jobs survive crashes; a running job abandoned by a dead
// worker is reclaimed after its lease expires.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	UploadBatchID uuid.UUID  `json:"upload_batch_id"`
	Status        JobStatus  `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LeasedUntil   *time.Time `json:"leased_until,omitempty"`
}

// ErrNoJob is returned by Claim when the queue has no workable job.
var ErrNoJob = errors.New("no pending job")

// Queue is the durable job queue backing the processing phase. Enqueueing is
// idempotent per batch while a job is still open, so an ingestion retry does
// not double-process a batch.
type Queue interface {
	Enqueue(ctx context.Context, batchID uuid.UUID) (Job, error)
	Claim(ctx context.Context, lease time.Duration) (Job, error)
	Complete(ctx context.Context, jobID uuid.UUID) error
	Fail(ctx context.Context, jobID uuid.UUID, cause error, maxAttempts int) error
}

type queue struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewQueue creates a Postgres-backed job queue.
func NewQueue(db *sql.DB, logger *slog.Logger) Queue {
	return &queue{
		db:     db,
		logger: logger.With("system", "queue"),
	}
}

const jobColumns = `id, upload_batch_id, status, attempts, last_error,
	created_at, updated_at, leased_until`

func (q *queue) Enqueue(ctx context.Context, batchID uuid.UUID) (Job, error) {
	const stmt = `
		INSERT INTO pipeline_jobs (id, upload_batch_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (upload_batch_id) WHERE status IN ('pending', 'running')
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, q.db, stmt, []any{uuid.New(), batchID}, scanJob)
	if err != nil {
		return Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Info("job enqueued", "job_id", job.ID, "batch_id", batchID)
	return job, nil
}

// Claim takes the oldest workable job, skipping rows other workers hold.
// Jobs whose lease expired count as abandoned and are reclaimed here.
func (q *queue) Claim(ctx context.Context, lease time.Duration) (Job, error) {
	const stmt = `
		UPDATE pipeline_jobs
		SET status = 'running', attempts = attempts + 1,
			leased_until = NOW() + $1::interval, updated_at = NOW()
		WHERE id = (
			SELECT id FROM pipeline_jobs
			WHERE status = 'pending'
			   OR (status = 'running' AND leased_until < NOW())
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, q.db, stmt,
		[]any{fmt.Sprintf("%d seconds", int(lease.Seconds()))}, scanJob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNoJob
		}
		return Job{}, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (q *queue) Complete(ctx context.Context, jobID uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, q.db, `
		UPDATE pipeline_jobs
		SET status = 'completed', last_error = '', leased_until = NULL, updated_at = NOW()
		WHERE id = $1`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail re-queues the job for another attempt, or parks it as failed once the
// attempt budget is spent.
func (q *queue) Fail(ctx context.Context, jobID uuid.UUID, cause error, maxAttempts int) error {
	err := repository.ExecExpectOne(ctx, q.db, `
		UPDATE pipeline_jobs
		SET status = CASE WHEN attempts >= $2 THEN 'failed' ELSE 'pending' END,
			last_error = $3, leased_until = NULL, updated_at = NOW()
		WHERE id = $1`,
		jobID, maxAttempts, cause.Error(),
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}

	q.logger.Warn("job attempt failed", "job_id", jobID, "error", cause)
	return nil
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	err := s.Scan(
		&j.ID,
		&j.UploadBatchID,
		&j.Status,
		&j.Attempts,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
		&j.LeasedUntil,
	)
	return j, err
}
