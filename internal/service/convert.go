package service

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/repository"
)

// repoUserToDomain converts a repository user row to the domain type.
func repoUserToDomain(u repository.User) *domain.User {
	user := &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Plan:         domain.PlanID(u.Plan),
		Usage: domain.UsageCounters{
			UsedToday: int(u.UsedToday),
			UsedMonth: int(u.UsedMonth),
			UsedTotal: int(u.UsedTotal),
			LastReset: u.LastReset,
		},
		StripeCustomerID:   u.StripeCustomerID.String,
		SubscriptionID:     u.SubscriptionID.String,
		SubscriptionStatus: domain.SubscriptionStatus(u.SubscriptionStatus.String),
		EmailVerified:      u.EmailVerified,
		IsAdmin:            u.IsAdmin,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
	if u.EmailVerifiedAt.Valid {
		t := u.EmailVerifiedAt.Time
		user.EmailVerifiedAt = &t
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = domain.SubscriptionStatusInactive
	}
	return user
}

// repoAnalysisToDomain converts a repository analysis row to the domain type.
func repoAnalysisToDomain(a repository.Analysis) *domain.Analysis {
	out := &domain.Analysis{
		ID:           a.ID,
		UserID:       a.UserID,
		Filename:     a.Filename,
		MimeType:     a.MimeType,
		MediaType:    domain.MediaType(a.MediaType),
		SizeBytes:    a.SizeBytes,
		StorageKey:   a.StorageKey.String,
		ThumbnailKey: a.ThumbnailKey.String,
		AIScore:      a.AiScore,
		IsAI:         a.IsAi,
		Confidence:   a.Confidence,
		Verdict: domain.Verdict{
			Key:   domain.VerdictKey(a.VerdictKey),
			Color: domain.VerdictColor(a.VerdictColor),
		},
		Provider:       a.Provider,
		Demo:           a.Demo,
		Consensus:      a.Consensus.String,
		FramesAnalyzed: int(a.FramesAnalyzed),
		Status:         domain.AnalysisStatus(a.Status),
		CreatedAt:      a.CreatedAt,
	}
	if a.Sources.Valid {
		// Corrupt stored sources degrade to an empty list rather than an error.
		_ = json.Unmarshal(a.Sources.RawMessage, &out.Sources)
	}
	return out
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullRawMessage(data json.RawMessage) pqtype.NullRawMessage {
	return pqtype.NullRawMessage{RawMessage: data, Valid: len(data) > 0}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
