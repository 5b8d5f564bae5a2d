package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, plan,
	used_today, used_month, used_total, last_reset,
	stripe_customer_id, subscription_id, subscription_status,
	email_verified, email_verified_at, is_admin, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Plan,
		&u.UsedToday, &u.UsedMonth, &u.UsedTotal, &u.LastReset,
		&u.StripeCustomerID, &u.SubscriptionID, &u.SubscriptionStatus,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const createUser = `
INSERT INTO users (id, email, password_hash, name, plan, last_reset)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING ` + userColumns

type CreateUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Plan         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser,
		arg.ID, arg.Email, arg.PasswordHash, arg.Name, arg.Plan))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByStripeCustomerID = `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByStripeCustomerID, customerID))
}

const updateUserPassword = `
UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

type UpdateUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.ID, arg.PasswordHash)
	return err
}

const updateUserProfile = `
UPDATE users SET name = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	ID   uuid.UUID
	Name string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfile, arg.ID, arg.Name))
}

const updateUserEmailVerification = `
UPDATE users SET email_verified = true, email_verified_at = now(), updated_at = now()
WHERE id = $1`

func (q *Queries) UpdateUserEmailVerification(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateUserEmailVerification, id)
	return err
}

const updateUserPlan = `
UPDATE users SET plan = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserPlanParams struct {
	ID   uuid.UUID
	Plan string
}

func (q *Queries) UpdateUserPlan(ctx context.Context, arg UpdateUserPlanParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserPlan, arg.ID, arg.Plan))
}

const updateUserStripeCustomer = `
UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`

type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID
	StripeCustomerID sql.NullString
}

func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, arg UpdateUserStripeCustomerParams) error {
	_, err := q.db.ExecContext(ctx, updateUserStripeCustomer, arg.ID, arg.StripeCustomerID)
	return err
}

const updateUserSubscription = `
UPDATE users SET plan = $2, subscription_id = $3, subscription_status = $4, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserSubscriptionParams struct {
	ID                 uuid.UUID
	Plan               string
	SubscriptionID     sql.NullString
	SubscriptionStatus sql.NullString
}

func (q *Queries) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserSubscription,
		arg.ID, arg.Plan, arg.SubscriptionID, arg.SubscriptionStatus))
}

const incrementUserUsage = `
UPDATE users SET
	used_today = used_today + 1,
	used_month = used_month + 1,
	used_total = used_total + 1,
	updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

// IncrementUserUsage bumps all three counters atomically after a completed
// analysis.
func (q *Queries) IncrementUserUsage(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, incrementUserUsage, id))
}

const applyUsageReset = `
UPDATE users SET
	used_today = $2,
	used_month = $3,
	last_reset = $4,
	updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type ApplyUsageResetParams struct {
	ID        uuid.UUID
	UsedToday int32
	UsedMonth int32
	LastReset time.Time
}

// ApplyUsageReset persists the result of a calendar rollover.
func (q *Queries) ApplyUsageReset(ctx context.Context, arg ApplyUsageResetParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, applyUsageReset,
		arg.ID, arg.UsedToday, arg.UsedMonth, arg.LastReset))
}

const adjustUserUsage = `
UPDATE users SET
	used_today = COALESCE($2, used_today),
	used_month = COALESCE($3, used_month),
	used_total = COALESCE($4, used_total),
	updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type AdjustUserUsageParams struct {
	ID        uuid.UUID
	UsedToday sql.NullInt32
	UsedMonth sql.NullInt32
	UsedTotal sql.NullInt32
}

// AdjustUserUsage sets individual counters directly, used by support staff
// to grant extra analyses.
func (q *Queries) AdjustUserUsage(ctx context.Context, arg AdjustUserUsageParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, adjustUserUsage,
		arg.ID, arg.UsedToday, arg.UsedMonth, arg.UsedTotal))
}

const setUserAdminByEmail = `
UPDATE users SET is_admin = true, updated_at = now()
WHERE lower(email) = lower($1) AND is_admin = false`

// SetUserAdminByEmail grants admin to an existing account. Returns the
// number of rows changed; zero means the account does not exist or is
// already an admin.
func (q *Queries) SetUserAdminByEmail(ctx context.Context, email string) (int64, error) {
	result, err := q.db.ExecContext(ctx, setUserAdminByEmail, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `DELETE FROM users WHERE id = $1`

// DeleteUser removes the account row. Sessions, tokens, analyses and audit
// logs cascade via foreign keys.
func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const countUsers = `SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const countUsersByPlan = `SELECT plan, count(*) FROM users GROUP BY plan ORDER BY plan`

type CountUsersByPlanRow struct {
	Plan  string
	Count int64
}

func (q *Queries) CountUsersByPlan(ctx context.Context) ([]CountUsersByPlanRow, error) {
	rows, err := q.db.QueryContext(ctx, countUsersByPlan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountUsersByPlanRow
	for rows.Next() {
		var row CountUsersByPlanRow
		if err := rows.Scan(&row.Plan, &row.Count); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const listUsers = `
SELECT ` + userColumns + `
FROM users
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

type ListUsersParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Plan,
			&u.UsedToday, &u.UsedMonth, &u.UsedTotal, &u.LastReset,
			&u.StripeCustomerID, &u.SubscriptionID, &u.SubscriptionStatus,
			&u.EmailVerified, &u.EmailVerifiedAt, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
