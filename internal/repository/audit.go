package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const auditColumns = `id, user_id, action, resource, resource_id, metadata, ip_address, created_at`

const createAuditLog = `
INSERT INTO audit_logs (id, user_id, action, resource, resource_id, metadata, ip_address)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + auditColumns

type CreateAuditLogParams struct {
	ID         uuid.UUID
	UserID     uuid.NullUUID
	Action     string
	Resource   string
	ResourceID sql.NullString
	Metadata   pqtype.NullRawMessage
	IPAddress  sql.NullString
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AuditLog, error) {
	var a AuditLog
	err := q.db.QueryRowContext(ctx, createAuditLog,
		arg.ID, arg.UserID, arg.Action, arg.Resource, arg.ResourceID, arg.Metadata, arg.IPAddress,
	).Scan(&a.ID, &a.UserID, &a.Action, &a.Resource, &a.ResourceID, &a.Metadata, &a.IPAddress, &a.CreatedAt)
	return a, err
}

const listAuditLogs = `
SELECT ` + auditColumns + `
FROM audit_logs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

type ListAuditLogsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLogs, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanAuditRows(rows)
}

const listAuditLogsByUserID = `
SELECT ` + auditColumns + `
FROM audit_logs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListAuditLogsByUserIDParams struct {
	UserID uuid.NullUUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListAuditLogsByUserID(ctx context.Context, arg ListAuditLogsByUserIDParams) ([]AuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLogsByUserID, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]AuditLog, error) {
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Resource, &a.ResourceID, &a.Metadata, &a.IPAddress, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const anonymizeAuditLogsByUserID = `
UPDATE audit_logs SET user_id = NULL, ip_address = NULL WHERE user_id = $1`

// AnonymizeAuditLogsByUserID detaches audit history from a deleted account.
// The records stay for operational forensics but no longer identify anyone.
func (q *Queries) AnonymizeAuditLogsByUserID(ctx context.Context, userID uuid.NullUUID) error {
	_, err := q.db.ExecContext(ctx, anonymizeAuditLogsByUserID, userID)
	return err
}
