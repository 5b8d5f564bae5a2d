package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const analysisColumns = `id, user_id, filename, mime_type, media_type, size_bytes,
	storage_key, thumbnail_key, ai_score, is_ai, confidence,
	verdict_key, verdict_color, provider, demo, consensus, sources,
	frames_analyzed, status, created_at`

func scanAnalysis(row *sql.Row) (Analysis, error) {
	var a Analysis
	err := row.Scan(
		&a.ID, &a.UserID, &a.Filename, &a.MimeType, &a.MediaType, &a.SizeBytes,
		&a.StorageKey, &a.ThumbnailKey, &a.AiScore, &a.IsAi, &a.Confidence,
		&a.VerdictKey, &a.VerdictColor, &a.Provider, &a.Demo, &a.Consensus, &a.Sources,
		&a.FramesAnalyzed, &a.Status, &a.CreatedAt,
	)
	return a, err
}

func scanAnalysisRows(rows *sql.Rows) ([]Analysis, error) {
	defer rows.Close()
	var items []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Filename, &a.MimeType, &a.MediaType, &a.SizeBytes,
			&a.StorageKey, &a.ThumbnailKey, &a.AiScore, &a.IsAi, &a.Confidence,
			&a.VerdictKey, &a.VerdictColor, &a.Provider, &a.Demo, &a.Consensus, &a.Sources,
			&a.FramesAnalyzed, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const createAnalysis = `
INSERT INTO analyses (
	id, user_id, filename, mime_type, media_type, size_bytes,
	storage_key, thumbnail_key, ai_score, is_ai, confidence,
	verdict_key, verdict_color, provider, demo, consensus, sources,
	frames_analyzed, status
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
RETURNING ` + analysisColumns

type CreateAnalysisParams struct {
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
}

func (q *Queries) CreateAnalysis(ctx context.Context, arg CreateAnalysisParams) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, createAnalysis,
		arg.ID, arg.UserID, arg.Filename, arg.MimeType, arg.MediaType, arg.SizeBytes,
		arg.StorageKey, arg.ThumbnailKey, arg.AiScore, arg.IsAi, arg.Confidence,
		arg.VerdictKey, arg.VerdictColor, arg.Provider, arg.Demo, arg.Consensus, arg.Sources,
		arg.FramesAnalyzed, arg.Status))
}

const getAnalysisByIDAndUserID = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1 AND user_id = $2`

type GetAnalysisByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetAnalysisByIDAndUserID(ctx context.Context, arg GetAnalysisByIDAndUserIDParams) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, getAnalysisByIDAndUserID, arg.ID, arg.UserID))
}

const listAnalysesByUserID = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListAnalysesByUserIDParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListAnalysesByUserID(ctx context.Context, arg ListAnalysesByUserIDParams) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listAnalysesByUserID, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanAnalysisRows(rows)
}

const listAllAnalysesByUserID = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at ASC`

// ListAllAnalysesByUserID returns the complete history, used by data export.
func (q *Queries) ListAllAnalysesByUserID(ctx context.Context, userID uuid.UUID) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listAllAnalysesByUserID, userID)
	if err != nil {
		return nil, err
	}
	return scanAnalysisRows(rows)
}

const listAnalysesByIDs = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = ANY($1::uuid[])`

func (q *Queries) ListAnalysesByIDs(ctx context.Context, ids []uuid.UUID) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listAnalysesByIDs, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanAnalysisRows(rows)
}

const countAnalysesByUserID = `SELECT count(*) FROM analyses WHERE user_id = $1`

func (q *Queries) CountAnalysesByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countAnalysesByUserID, userID).Scan(&count)
	return count, err
}

const deleteAnalysisByIDAndUserID = `
DELETE FROM analyses
WHERE id = $1 AND user_id = $2
RETURNING storage_key, thumbnail_key`

type DeleteAnalysisByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

type DeleteAnalysisByIDAndUserIDRow struct {
	StorageKey   sql.NullString
	ThumbnailKey sql.NullString
}

// DeleteAnalysisByIDAndUserID removes one analysis and returns its storage
// keys so the caller can delete the underlying objects.
func (q *Queries) DeleteAnalysisByIDAndUserID(ctx context.Context, arg DeleteAnalysisByIDAndUserIDParams) (DeleteAnalysisByIDAndUserIDRow, error) {
	var row DeleteAnalysisByIDAndUserIDRow
	err := q.db.QueryRowContext(ctx, deleteAnalysisByIDAndUserID, arg.ID, arg.UserID).
		Scan(&row.StorageKey, &row.ThumbnailKey)
	return row, err
}

const deleteAnalysesByUserID = `
DELETE FROM analyses
WHERE user_id = $1
RETURNING storage_key, thumbnail_key`

type DeleteAnalysesByUserIDRow struct {
	StorageKey   sql.NullString
	ThumbnailKey sql.NullString
}

func (q *Queries) DeleteAnalysesByUserID(ctx context.Context, userID uuid.UUID) ([]DeleteAnalysesByUserIDRow, error) {
	rows, err := q.db.QueryContext(ctx, deleteAnalysesByUserID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DeleteAnalysesByUserIDRow
	for rows.Next() {
		var row DeleteAnalysesByUserIDRow
		if err := rows.Scan(&row.StorageKey, &row.ThumbnailKey); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const purgeAnalysesCreatedBefore = `
DELETE FROM analyses
WHERE created_at < $1
RETURNING storage_key, thumbnail_key`

type PurgeAnalysesCreatedBeforeRow struct {
	StorageKey   sql.NullString
	ThumbnailKey sql.NullString
}

// PurgeAnalysesCreatedBefore removes analyses past the retention window and
// returns the orphaned storage keys.
func (q *Queries) PurgeAnalysesCreatedBefore(ctx context.Context, cutoff time.Time) ([]PurgeAnalysesCreatedBeforeRow, error) {
	rows, err := q.db.QueryContext(ctx, purgeAnalysesCreatedBefore, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PurgeAnalysesCreatedBeforeRow
	for rows.Next() {
		var row PurgeAnalysesCreatedBeforeRow
		if err := rows.Scan(&row.StorageKey, &row.ThumbnailKey); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const countAnalyses = `SELECT count(*) FROM analyses`

func (q *Queries) CountAnalyses(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countAnalyses).Scan(&count)
	return count, err
}

const countAnalysesSince = `SELECT count(*) FROM analyses WHERE created_at >= $1`

func (q *Queries) CountAnalysesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countAnalysesSince, since).Scan(&count)
	return count, err
}

const countAnalysesByVerdict = `
SELECT verdict_key, count(*) FROM analyses GROUP BY verdict_key ORDER BY verdict_key`

type CountAnalysesByVerdictRow struct {
	VerdictKey string
	Count      int64
}

func (q *Queries) CountAnalysesByVerdict(ctx context.Context) ([]CountAnalysesByVerdictRow, error) {
	rows, err := q.db.QueryContext(ctx, countAnalysesByVerdict)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountAnalysesByVerdictRow
	for rows.Next() {
		var row CountAnalysesByVerdictRow
		if err := rows.Scan(&row.VerdictKey, &row.Count); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
