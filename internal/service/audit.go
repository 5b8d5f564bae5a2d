package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/repository"
)

// AuditEntry is one recorded action.
type AuditEntry struct {
	UserID     uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Metadata   map[string]any
	IPAddress  string
}

// AuditRecorder records user and admin actions for the audit trail.
type AuditRecorder interface {
	// Record writes the entry asynchronously. It never blocks the request
	// path and failures are only logged.
	Record(ctx context.Context, entry AuditEntry)

	// List returns a page of the trail, newest first. Admin only.
	List(ctx context.Context, limit, offset int) ([]repository.AuditLog, error)

	// ListByUser returns a page of one user's trail.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]repository.AuditLog, error)
}

const auditWriteTimeout = 5 * time.Second

type auditService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewAuditService creates an AuditRecorder backed by the audit_logs table.
func NewAuditService(queries *repository.Queries, logger *slog.Logger) AuditRecorder {
	return &auditService{queries: queries, logger: logger}
}

// Record writes the entry in a detached goroutine so a slow audit insert
// cannot delay the response. The write gets its own context because the
// request context is canceled as soon as the response is sent.
func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		var metadata json.RawMessage
		if len(entry.Metadata) > 0 {
			metadata, _ = json.Marshal(entry.Metadata)
		}

		_, err := s.queries.CreateAuditLog(writeCtx, repository.CreateAuditLogParams{
			ID:         uuid.New(),
			UserID:     uuid.NullUUID{UUID: entry.UserID, Valid: entry.UserID != uuid.Nil},
			Action:     entry.Action,
			Resource:   entry.Resource,
			ResourceID: toNullString(entry.ResourceID),
			Metadata:   toNullRawMessage(metadata),
			IPAddress:  toNullString(entry.IPAddress),
		})
		if err != nil {
			s.logger.Error("failed to write audit log", "action", entry.Action, "error", err)
		}
	}()
}

func (s *auditService) List(ctx context.Context, limit, offset int) ([]repository.AuditLog, error) {
	const op = "AuditService.List"

	logs, err := s.queries.ListAuditLogs(ctx, repository.ListAuditLogsParams{
		Limit:  clampPageSize(limit),
		Offset: int32(max(offset, 0)),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list audit logs")
	}
	return logs, nil
}

func (s *auditService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]repository.AuditLog, error) {
	const op = "AuditService.ListByUser"

	logs, err := s.queries.ListAuditLogsByUserID(ctx, repository.ListAuditLogsByUserIDParams{
		UserID: uuid.NullUUID{UUID: userID, Valid: true},
		Limit:  clampPageSize(limit),
		Offset: int32(max(offset, 0)),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list audit logs")
	}
	return logs, nil
}

func clampPageSize(limit int) int32 {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return int32(limit)
}
