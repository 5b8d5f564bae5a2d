// Package service contains the business logic layer.
//
// This file implements the data-protection operations: full data export and
// account deletion.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/storage"
	"github.com/faketect/faketect/internal/worker"
)

// GDPRService covers the user-data rights endpoints.
type GDPRService interface {
	// RequestExport queues a background job that assembles the user's data
	// into a downloadable archive and emails a link. Returns the job ID.
	RequestExport(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// DeleteAccount erases the account after re-authenticating with the
	// password: analyses plus stored files go first, then the user row;
	// audit entries are anonymized, not removed.
	DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error
}

type gdprService struct {
	queries *repository.Queries
	store   storage.Storage
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewGDPRService creates a GDPRService.
func NewGDPRService(queries *repository.Queries, store storage.Storage, audit AuditRecorder, logger *slog.Logger) GDPRService {
	return &gdprService{queries: queries, store: store, audit: audit, logger: logger}
}

func (s *gdprService) RequestExport(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	const op = "GDPRService.RequestExport"

	if _, err := s.queries.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.NotFound(op, "User not found")
		}
		return uuid.Nil, domain.Internal(err, op, "Failed to load user")
	}

	job, err := worker.EnqueueExportUserData(ctx, s.queries, userID)
	if err != nil {
		return uuid.Nil, domain.Internal(err, op, "Failed to queue export")
	}

	s.logger.Info("data export queued", "user_id", userID, "job_id", job.ID)
	s.audit.Record(ctx, AuditEntry{
		UserID:   userID,
		Action:   "gdpr.export_request",
		Resource: "user",
	})
	return job.ID, nil
}

func (s *gdprService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	const op = "GDPRService.DeleteAccount"

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "User not found")
		}
		return domain.Internal(err, op, "Failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return domain.Unauthorized(op, "Password is incorrect")
	}

	// Stored objects first: once the user row is gone the keys are
	// unreachable.
	keys, err := s.queries.DeleteAnalysesByUserID(ctx, userID)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete analyses")
	}
	for _, row := range keys {
		for _, key := range []sql.NullString{row.StorageKey, row.ThumbnailKey} {
			if key.Valid && key.String != "" {
				if err := s.store.Delete(ctx, key.String); err != nil {
					s.logger.Warn("failed to delete stored object during account deletion",
						"key", key.String, "error", err)
				}
			}
		}
	}

	// Audit entries survive anonymized; the trail must not vanish with the
	// account.
	if err := s.queries.AnonymizeAuditLogsByUserID(ctx, uuid.NullUUID{UUID: userID, Valid: true}); err != nil {
		s.logger.Error("failed to anonymize audit logs", "user_id", userID, "error", err)
	}

	if err := s.queries.DeleteUser(ctx, userID); err != nil {
		return domain.Internal(err, op, "Failed to delete account")
	}

	s.logger.Info("account deleted", "user_id", userID)
	s.audit.Record(ctx, AuditEntry{
		Action:   "gdpr.account_deleted",
		Resource: "user",
	})
	return nil
}
