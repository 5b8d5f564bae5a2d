package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
	error_message, scheduled_at, started_at, completed_at, created_at, updated_at`

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts,
		&j.ErrorMessage, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

const enqueueJob = `
INSERT INTO jobs (id, job_type, payload, status, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, 'pending', $4, $5, $6)
RETURNING ` + jobColumns

type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	return scanJob(q.db.QueryRowContext(ctx, enqueueJob,
		uuid.New(), arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt))
}

const dequeueJob = `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending' AND scheduled_at <= now()
ORDER BY priority DESC, scheduled_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED`

// DequeueJob claims the next runnable job. Must be called inside a
// transaction so the row lock holds until UpdateJobStarted commits.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	return scanJob(q.db.QueryRowContext(ctx, dequeueJob))
}

const updateJobStarted = `
UPDATE jobs SET status = 'running', started_at = now(), attempts = attempts + 1, updated_at = now()
WHERE id = $1`

func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `
UPDATE jobs SET status = 'completed', completed_at = now(), updated_at = now()
WHERE id = $1`

func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

const updateJobFailed = `
UPDATE jobs SET
	status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
	scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
		ELSE now() + (interval '1 second' * power(2, attempts) * 30) END,
	error_message = $2,
	updated_at = now()
WHERE id = $1`

type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// UpdateJobFailed reschedules the job with exponential backoff, or marks it
// failed once attempts are exhausted.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, updateJobFailed, arg.ID, arg.ErrorMessage)
	return err
}

const markJobPermanentlyFailed = `
UPDATE jobs SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1`

type MarkJobPermanentlyFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

func (q *Queries) MarkJobPermanentlyFailed(ctx context.Context, arg MarkJobPermanentlyFailedParams) error {
	_, err := q.db.ExecContext(ctx, markJobPermanentlyFailed, arg.ID, arg.ErrorMessage)
	return err
}

const recoverStaleJobs = `
UPDATE jobs SET status = 'pending', updated_at = now()
WHERE status = 'running'
	AND started_at < now() - (interval '1 second' * $1)
	AND attempts < max_attempts`

// RecoverStaleJobs resets jobs abandoned by a crashed worker back to
// pending and reports how many were recovered.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getJobByID = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

func (q *Queries) GetJobByID(ctx context.Context, id uuid.UUID) (Job, error) {
	return scanJob(q.db.QueryRowContext(ctx, getJobByID, id))
}

const deleteCompletedJobsBefore = `
DELETE FROM jobs WHERE status IN ('completed', 'failed') AND updated_at < $1`

func (q *Queries) DeleteCompletedJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCompletedJobsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
