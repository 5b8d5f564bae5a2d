package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const createSession = `
INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, token_hash, user_agent, ip_address, expires_at, created_at`

type CreateSessionParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent sql.NullString
	IPAddress sql.NullString
	ExpiresAt time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	var s Session
	err := q.db.QueryRowContext(ctx, createSession,
		arg.ID, arg.UserID, arg.TokenHash, arg.UserAgent, arg.IPAddress, arg.ExpiresAt,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

const getSessionWithUser = `
SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.created_at,
	` + userColumnsPrefixed + `
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token_hash = $1 AND s.expires_at > now()`

const userColumnsPrefixed = `u.id, u.email, u.password_hash, u.name, u.plan,
	u.used_today, u.used_month, u.used_total, u.last_reset,
	u.stripe_customer_id, u.subscription_id, u.subscription_status,
	u.email_verified, u.email_verified_at, u.is_admin, u.created_at, u.updated_at`

type GetSessionWithUserRow struct {
	SessionID        uuid.UUID
	SessionUserID    uuid.UUID
	SessionTokenHash string
	SessionExpiresAt time.Time
	SessionCreatedAt time.Time
	User             User
}

// GetSessionWithUser resolves an unexpired session and its owner in one
// round trip. sql.ErrNoRows means the token is unknown or expired.
func (q *Queries) GetSessionWithUser(ctx context.Context, tokenHash string) (GetSessionWithUserRow, error) {
	var row GetSessionWithUserRow
	u := &row.User
	err := q.db.QueryRowContext(ctx, getSessionWithUser, tokenHash).Scan(
		&row.SessionID, &row.SessionUserID, &row.SessionTokenHash, &row.SessionExpiresAt, &row.SessionCreatedAt,
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Plan,
		&u.UsedToday, &u.UsedMonth, &u.UsedTotal, &u.LastReset,
		&u.StripeCustomerID, &u.SubscriptionID, &u.SubscriptionStatus,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return row, err
}

const deleteSessionByTokenHash = `DELETE FROM sessions WHERE token_hash = $1`

func (q *Queries) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, deleteSessionByTokenHash, tokenHash)
	return err
}

const deleteSessionsByUserID = `DELETE FROM sessions WHERE user_id = $1`

// DeleteSessionsByUserID revokes every session, used after password changes
// and account deletion.
func (q *Queries) DeleteSessionsByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteSessionsByUserID, userID)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= now()`

func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
