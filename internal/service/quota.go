// Package service contains the business logic layer.
//
// This file implements the quota service: the stateful wrapper around the
// domain quota gate that persists rollover resets, records usage after
// completed analyses, and serves the usage endpoint through a short-lived
// cache.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/cache"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/metrics"
	"github.com/faketect/faketect/internal/repository"
)

// UsageCacheTTL bounds how stale the usage endpoint may be. Authorization
// always reads the database; only the read-only usage view is cached.
const UsageCacheTTL = 30 * time.Second

// QuotaService gates analyses against plan limits and tracks consumption.
type QuotaService interface {
	// Authorize decides whether the user may start a new analysis. When the
	// decision involved a calendar rollover the reset counters are persisted
	// before returning. A denial is reported as a domain.EQUOTA error.
	Authorize(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// RecordUse increments all usage counters after a completed analysis.
	RecordUse(ctx context.Context, userID uuid.UUID) error

	// GetUsage returns the user-facing usage view, served from cache when
	// fresh.
	GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error)

	// AdminAdjust sets counters directly. Only admins reach this path.
	AdminAdjust(ctx context.Context, adj domain.UsageAdjustment) (*domain.User, error)
}

type quotaService struct {
	queries *repository.Queries
	usage   *cache.TTL[uuid.UUID, domain.QuotaUsage]
	logger  *slog.Logger

	// now is injected in tests.
	now func() time.Time
}

// NewQuotaService creates a QuotaService.
func NewQuotaService(queries *repository.Queries, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		usage:   cache.NewTTL[uuid.UUID, domain.QuotaUsage](UsageCacheTTL),
		logger:  logger,
		now:     time.Now,
	}
}

// Authorize evaluates the quota gate for the user's current counters.
//
// The gate itself is pure; this method adds the persistence side: when the
// evaluation performed a daily or monthly rollover, the reset counters are
// written back even if the request is then denied, so the stored state
// always reflects the last evaluation.
func (s *quotaService) Authorize(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	const op = "QuotaService.Authorize"

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}

	user := repoUserToDomain(repoUser)
	plan := domain.GetPlan(user.Plan)
	decision := domain.CheckQuota(plan, user.Usage, s.now())

	if decision.DidReset {
		updated, err := s.queries.ApplyUsageReset(ctx, repository.ApplyUsageResetParams{
			ID:        userID,
			UsedToday: int32(decision.Counters.UsedToday),
			UsedMonth: int32(decision.Counters.UsedMonth),
			LastReset: decision.Counters.LastReset,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to persist usage reset")
		}
		user = repoUserToDomain(updated)
		s.usage.Delete(userID)
	} else {
		user.Usage = decision.Counters
	}

	if !decision.Permitted {
		s.logger.Info("quota denied",
			"user_id", userID,
			"plan", user.Plan,
			"reason", decision.Reason,
		)
		metrics.QuotaDenials.WithLabelValues(string(decision.Reason)).Inc()
		return nil, domain.QuotaExceeded(op, decision.Reason)
	}

	return user, nil
}

// RecordUse bumps the counters atomically in the database and invalidates
// the cached usage view.
func (s *quotaService) RecordUse(ctx context.Context, userID uuid.UUID) error {
	const op = "QuotaService.RecordUse"

	if _, err := s.queries.IncrementUserUsage(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "User not found")
		}
		return domain.Internal(err, op, "Failed to record usage")
	}
	s.usage.Delete(userID)
	return nil
}

// GetUsage serves the usage view, preferring the cache. Cache state never
// affects correctness of the quota gate because Authorize bypasses it.
func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	const op = "QuotaService.GetUsage"

	if cached, ok := s.usage.Get(userID); ok {
		return &cached, nil
	}

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}

	user := repoUserToDomain(repoUser)
	plan := domain.GetPlan(user.Plan)

	// Show post-rollover counters without writing them back; the next
	// Authorize call persists the reset.
	decision := domain.CheckQuota(plan, user.Usage, s.now())
	usage := domain.BuildQuotaUsage(plan, decision.Counters)

	s.usage.Set(userID, usage)
	return &usage, nil
}

// AdminAdjust applies a manual counter correction.
func (s *quotaService) AdminAdjust(ctx context.Context, adj domain.UsageAdjustment) (*domain.User, error) {
	const op = "QuotaService.AdminAdjust"

	params := repository.AdjustUserUsageParams{ID: adj.UserID}
	if adj.UsedToday != nil {
		if *adj.UsedToday < 0 {
			return nil, domain.Invalid(op, "Counters cannot be negative")
		}
		params.UsedToday = sql.NullInt32{Int32: int32(*adj.UsedToday), Valid: true}
	}
	if adj.UsedMonth != nil {
		if *adj.UsedMonth < 0 {
			return nil, domain.Invalid(op, "Counters cannot be negative")
		}
		params.UsedMonth = sql.NullInt32{Int32: int32(*adj.UsedMonth), Valid: true}
	}
	if adj.UsedTotal != nil {
		if *adj.UsedTotal < 0 {
			return nil, domain.Invalid(op, "Counters cannot be negative")
		}
		params.UsedTotal = sql.NullInt32{Int32: int32(*adj.UsedTotal), Valid: true}
	}

	updated, err := s.queries.AdjustUserUsage(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to adjust usage")
	}

	s.usage.Delete(adj.UserID)
	s.logger.Info("usage adjusted",
		"user_id", adj.UserID,
		"used_today", params.UsedToday,
		"used_month", params.UsedMonth,
		"used_total", params.UsedTotal,
	)
	return repoUserToDomain(updated), nil
}
