package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/repository"
)

// Job type constants. These must match the JobHandler.Type() values.
const (
	JobTypeSendEmail            = "send_email"
	JobTypeExportUserData       = "export_user_data"
	JobTypePurgeExpiredAnalyses = "purge_expired_analyses"
	JobTypeCleanupCredentials   = "cleanup_credentials"
)

// Priority constants for job scheduling.
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// SendEmailPayload is the payload for outbound email jobs.
type SendEmailPayload struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// ExportUserDataPayload is the payload for data export jobs.
type ExportUserDataPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// PurgeExpiredAnalysesPayload is the payload for retention purge jobs.
type PurgeExpiredAnalysesPayload struct {
	RetentionDays int `json:"retention_days"`
}

// EnqueueOption customizes job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is the generic enqueue helper.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueSendEmail queues an outbound email. Emails run at high priority so
// verification links arrive while the user is still waiting.
func EnqueueSendEmail(
	ctx context.Context,
	queries *repository.Queries,
	payload SendEmailPayload,
	opts ...EnqueueOption,
) (repository.Job, error) {
	opts = append([]EnqueueOption{WithPriority(PriorityHigh)}, opts...)
	return EnqueueJob(ctx, queries, JobTypeSendEmail, payload, opts...)
}

// EnqueueExportUserData queues a full data export for one user.
func EnqueueExportUserData(
	ctx context.Context,
	queries *repository.Queries,
	userID uuid.UUID,
	opts ...EnqueueOption,
) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeExportUserData, ExportUserDataPayload{UserID: userID}, opts...)
}

// EnqueuePurgeExpiredAnalyses queues a retention sweep.
func EnqueuePurgeExpiredAnalyses(
	ctx context.Context,
	queries *repository.Queries,
	retentionDays int,
	opts ...EnqueueOption,
) (repository.Job, error) {
	opts = append([]EnqueueOption{WithPriority(PriorityLow)}, opts...)
	return EnqueueJob(ctx, queries, JobTypePurgeExpiredAnalyses, PurgeExpiredAnalysesPayload{RetentionDays: retentionDays}, opts...)
}
