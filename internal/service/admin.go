// Package service contains the business logic layer.
//
// This file implements the admin service backing the back-office endpoints.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/repository"
)

// AdminStats is the aggregate dashboard snapshot.
type AdminStats struct {
	TotalUsers        int64            `json:"total_users"`
	UsersByPlan       map[string]int64 `json:"users_by_plan"`
	TotalAnalyses     int64            `json:"total_analyses"`
	AnalysesLast24h   int64            `json:"analyses_last_24h"`
	AnalysesLast30d   int64            `json:"analyses_last_30d"`
	AnalysesByVerdict map[string]int64 `json:"analyses_by_verdict"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// AdminService exposes the back-office operations. Every caller has already
// passed the admin middleware.
type AdminService interface {
	// Stats computes the dashboard snapshot.
	Stats(ctx context.Context) (*AdminStats, error)

	// ListUsers returns a page of accounts, newest first.
	ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int64, error)
}

type adminService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(queries *repository.Queries, logger *slog.Logger) AdminService {
	return &adminService{queries: queries, logger: logger}
}

func (s *adminService) Stats(ctx context.Context) (*AdminStats, error) {
	const op = "AdminService.Stats"

	stats := &AdminStats{
		UsersByPlan:       make(map[string]int64),
		AnalysesByVerdict: make(map[string]int64),
		GeneratedAt:       time.Now().UTC(),
	}

	var err error
	if stats.TotalUsers, err = s.queries.CountUsers(ctx); err != nil {
		return nil, domain.Internal(err, op, "Failed to count users")
	}

	byPlan, err := s.queries.CountUsersByPlan(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count users by plan")
	}
	for _, row := range byPlan {
		stats.UsersByPlan[row.Plan] = row.Count
	}

	if stats.TotalAnalyses, err = s.queries.CountAnalyses(ctx); err != nil {
		return nil, domain.Internal(err, op, "Failed to count analyses")
	}

	now := time.Now().UTC()
	if stats.AnalysesLast24h, err = s.queries.CountAnalysesSince(ctx, now.Add(-24*time.Hour)); err != nil {
		return nil, domain.Internal(err, op, "Failed to count recent analyses")
	}
	if stats.AnalysesLast30d, err = s.queries.CountAnalysesSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, domain.Internal(err, op, "Failed to count recent analyses")
	}

	byVerdict, err := s.queries.CountAnalysesByVerdict(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count analyses by verdict")
	}
	for _, row := range byVerdict {
		stats.AnalysesByVerdict[row.VerdictKey] = row.Count
	}

	return stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int64, error) {
	const op = "AdminService.ListUsers"

	rows, err := s.queries.ListUsers(ctx, repository.ListUsersParams{
		Limit:  clampPageSize(limit),
		Offset: int32(max(offset, 0)),
	})
	if err != nil {
		return nil, 0, domain.Internal(err, op, "Failed to list users")
	}

	total, err := s.queries.CountUsers(ctx)
	if err != nil {
		return nil, 0, domain.Internal(err, op, "Failed to count users")
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		u := repoUserToDomain(row)
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, total, nil
}
