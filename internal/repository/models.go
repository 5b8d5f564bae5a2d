package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// User is a row in the users table.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	Plan               string
	UsedToday          int32
	UsedMonth          int32
	UsedTotal          int32
	LastReset          time.Time
	StripeCustomerID   sql.NullString
	SubscriptionID     sql.NullString
	SubscriptionStatus sql.NullString
	EmailVerified      bool
	EmailVerifiedAt    sql.NullTime
	IsAdmin            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Session is a row in the sessions table. Only the SHA-256 hash of the
// session token is stored.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent sql.NullString
	IPAddress sql.NullString
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Token is a row in the tokens table, covering email verification and
// password reset flows.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

// Analysis is a row in the analyses table.
type Analysis struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Filename       string
	MimeType       string
	MediaType      string
	SizeBytes      int64
	StorageKey     sql.NullString
	ThumbnailKey   sql.NullString
	AiScore        float64
	IsAi           bool
	Confidence     float64
	VerdictKey     string
	VerdictColor   string
	Provider       string
	Demo           bool
	Consensus      sql.NullString
	Sources        pqtype.NullRawMessage
	FramesAnalyzed int32
	Status         string
	CreatedAt      time.Time
}

// Job is a row in the jobs table backing the background queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditLog is a row in the audit_logs table.
type AuditLog struct {
	ID         uuid.UUID
	UserID     uuid.NullUUID
	Action     string
	Resource   string
	ResourceID sql.NullString
	Metadata   pqtype.NullRawMessage
	IPAddress  sql.NullString
	CreatedAt  time.Time
}
