package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const tokenColumns = `id, user_id, purpose, token_hash, expires_at, used_at, created_at`

const createToken = `
INSERT INTO tokens (id, user_id, purpose, token_hash, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + tokenColumns

type CreateTokenParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
}

func (q *Queries) CreateToken(ctx context.Context, arg CreateTokenParams) (Token, error) {
	var t Token
	err := q.db.QueryRowContext(ctx, createToken,
		arg.ID, arg.UserID, arg.Purpose, arg.TokenHash, arg.ExpiresAt,
	).Scan(&t.ID, &t.UserID, &t.Purpose, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	return t, err
}

const getTokenByHash = `
SELECT ` + tokenColumns + `
FROM tokens
WHERE token_hash = $1 AND purpose = $2`

type GetTokenByHashParams struct {
	TokenHash string
	Purpose   string
}

func (q *Queries) GetTokenByHash(ctx context.Context, arg GetTokenByHashParams) (Token, error) {
	var t Token
	err := q.db.QueryRowContext(ctx, getTokenByHash, arg.TokenHash, arg.Purpose).
		Scan(&t.ID, &t.UserID, &t.Purpose, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	return t, err
}

const markTokenUsed = `UPDATE tokens SET used_at = now() WHERE id = $1`

func (q *Queries) MarkTokenUsed(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markTokenUsed, id)
	return err
}

const deleteTokensByUser = `DELETE FROM tokens WHERE user_id = $1 AND purpose = $2`

type DeleteTokensByUserParams struct {
	UserID  uuid.UUID
	Purpose string
}

// DeleteTokensByUser invalidates outstanding tokens of one purpose before a
// fresh token is issued.
func (q *Queries) DeleteTokensByUser(ctx context.Context, arg DeleteTokensByUserParams) error {
	_, err := q.db.ExecContext(ctx, deleteTokensByUser, arg.UserID, arg.Purpose)
	return err
}

const deleteExpiredTokens = `DELETE FROM tokens WHERE expires_at <= now()`

func (q *Queries) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredTokens)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
