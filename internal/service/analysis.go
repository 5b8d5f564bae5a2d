// Package service contains the business logic layer.
//
// This file implements the analysis service: the orchestrator for the
// upload → quota → store → detect → persist → account pipeline.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/detect"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/metrics"
	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/storage"
)

// Upload size caps by media type.
const (
	MaxImageUploadBytes = 25 * 1024 * 1024
	MaxVideoUploadBytes = 200 * 1024 * 1024
	MaxTextUploadBytes  = 1 * 1024 * 1024

	// ThumbnailMaxDim bounds both thumbnail dimensions.
	ThumbnailMaxDim = 320
)

// AnalyzeParams is one upload submitted for detection.
type AnalyzeParams struct {
	UserID   uuid.UUID
	Filename string
	MimeType string
	Content  []byte
}

// AnalysisService runs detections and manages stored analysis records.
type AnalysisService interface {
	// Analyze runs the full pipeline for one upload and returns the
	// persisted record. Quota denials surface as domain.EQUOTA errors;
	// provider failures never surface, they degrade the verdict instead.
	Analyze(ctx context.Context, params AnalyzeParams) (*domain.Analysis, error)

	// GetByID returns one analysis owned by the user.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Analysis, error)

	// List returns a page of the user's analyses, newest first.
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Analysis, int64, error)

	// Delete removes one analysis and its stored objects.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type analysisService struct {
	queries    *repository.Queries
	quota      QuotaService
	aggregator *detect.Aggregator
	store      storage.Storage
	thumbnails ThumbnailProcessor
	audit      AuditRecorder
	logger     *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	queries *repository.Queries,
	quota QuotaService,
	aggregator *detect.Aggregator,
	store storage.Storage,
	thumbnails ThumbnailProcessor,
	audit AuditRecorder,
	logger *slog.Logger,
) AnalysisService {
	return &analysisService{
		queries:    queries,
		quota:      quota,
		aggregator: aggregator,
		store:      store,
		thumbnails: thumbnails,
		audit:      audit,
		logger:     logger,
	}
}

// Analyze runs the detection pipeline.
//
// Ordering matters: the quota gate runs first so denied requests cost
// nothing; the original upload is stored before detection so a provider
// hang cannot lose the file; usage is recorded only after the record is
// persisted, so a failed pipeline never consumes quota.
func (s *analysisService) Analyze(ctx context.Context, params AnalyzeParams) (*domain.Analysis, error) {
	const op = "AnalysisService.Analyze"

	mediaType := domain.MediaTypeFor(params.MimeType)
	if err := validateUpload(op, mediaType, params); err != nil {
		return nil, err
	}

	user, err := s.quota.Authorize(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if mediaType == domain.MediaTypeVideo && !user.CanAnalyzeVideo() {
		return nil, domain.Forbidden(op, "Your plan does not include video detection")
	}

	analysisID := uuid.New()

	var storageKey, thumbnailKey string
	if mediaType != domain.MediaTypeText {
		storageKey = storage.AnalysisKey(params.UserID, analysisID, params.Filename)
		err = s.store.Put(ctx, storageKey, bytes.NewReader(params.Content), storage.PutOptions{
			ContentType: params.MimeType,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to store upload")
		}

		if mediaType == domain.MediaTypeImage {
			thumbnailKey = s.generateThumbnail(ctx, params, analysisID)
		}
	}

	verdict := s.aggregator.Analyze(ctx, detect.Input{
		Content:  params.Content,
		MimeType: params.MimeType,
		Filename: params.Filename,
	})

	record := &domain.Analysis{
		ID:             analysisID,
		UserID:         params.UserID,
		Filename:       params.Filename,
		MimeType:       params.MimeType,
		MediaType:      mediaType,
		SizeBytes:      int64(len(params.Content)),
		StorageKey:     storageKey,
		ThumbnailKey:   thumbnailKey,
		AIScore:        verdict.AIScore,
		IsAI:           verdict.IsAI,
		Confidence:     verdict.Confidence,
		Verdict:        verdict.Verdict,
		Provider:       verdict.Provider,
		Demo:           verdict.Demo,
		Consensus:      verdict.Consensus,
		Sources:        verdict.Sources,
		FramesAnalyzed: verdict.FramesAnalyzed,
		Status:         domain.AnalysisStatusCompleted,
	}

	created, err := s.queries.CreateAnalysis(ctx, repository.CreateAnalysisParams{
		ID:             record.ID,
		UserID:         record.UserID,
		Filename:       record.Filename,
		MimeType:       record.MimeType,
		MediaType:      string(record.MediaType),
		SizeBytes:      record.SizeBytes,
		StorageKey:     toNullString(record.StorageKey),
		ThumbnailKey:   toNullString(record.ThumbnailKey),
		AiScore:        record.AIScore,
		IsAi:           record.IsAI,
		Confidence:     record.Confidence,
		VerdictKey:     string(record.Verdict.Key),
		VerdictColor:   string(record.Verdict.Color),
		Provider:       record.Provider,
		Demo:           record.Demo,
		Consensus:      toNullString(record.Consensus),
		Sources:        toNullRawMessage(record.SourcesJSON()),
		FramesAnalyzed: int32(record.FramesAnalyzed),
		Status:         string(record.Status),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to persist analysis")
	}

	if err := s.quota.RecordUse(ctx, params.UserID); err != nil {
		// The verdict exists; losing one counter tick is preferable to
		// failing the request after the user has their answer.
		s.logger.Error("failed to record usage", "user_id", params.UserID, "error", err)
	}

	metrics.AnalysesTotal.WithLabelValues(string(mediaType), string(record.Verdict.Key)).Inc()
	s.logger.Info("analysis completed",
		"analysis_id", record.ID,
		"user_id", params.UserID,
		"media_type", mediaType,
		"provider", record.Provider,
		"verdict", record.Verdict.Key,
		"demo", record.Demo,
	)
	s.audit.Record(ctx, AuditEntry{
		UserID:     params.UserID,
		Action:     "analysis.create",
		Resource:   "analysis",
		ResourceID: record.ID.String(),
	})

	return repoAnalysisToDomain(created), nil
}

// generateThumbnail is best-effort: a corrupt image still gets analyzed, it
// just has no preview.
func (s *analysisService) generateThumbnail(ctx context.Context, params AnalyzeParams, analysisID uuid.UUID) string {
	thumb, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(params.Content), ThumbnailMaxDim, ThumbnailMaxDim)
	if err != nil {
		s.logger.Warn("thumbnail generation failed", "analysis_id", analysisID, "error", err)
		return ""
	}

	key := storage.AnalysisThumbnailKey(params.UserID, analysisID)
	err = s.store.Put(ctx, key, bytes.NewReader(thumb), storage.PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		s.logger.Warn("thumbnail upload failed", "analysis_id", analysisID, "error", err)
		return ""
	}
	return key
}

// GetByID returns one analysis scoped to its owner.
func (s *analysisService) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Analysis, error) {
	const op = "AnalysisService.GetByID"

	row, err := s.queries.GetAnalysisByIDAndUserID(ctx, repository.GetAnalysisByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Analysis not found")
		}
		return nil, domain.Internal(err, op, "Failed to load analysis")
	}
	return repoAnalysisToDomain(row), nil
}

// List returns a page of the user's history plus the total count.
func (s *analysisService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Analysis, int64, error) {
	const op = "AnalysisService.List"

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.queries.ListAnalysesByUserID(ctx, repository.ListAnalysesByUserIDParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, 0, domain.Internal(err, op, "Failed to list analyses")
	}

	total, err := s.queries.CountAnalysesByUserID(ctx, userID)
	if err != nil {
		return nil, 0, domain.Internal(err, op, "Failed to count analyses")
	}

	items := make([]*domain.Analysis, 0, len(rows))
	for _, row := range rows {
		items = append(items, repoAnalysisToDomain(row))
	}
	return items, total, nil
}

// Delete removes the record and its stored objects.
func (s *analysisService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const op = "AnalysisService.Delete"

	keys, err := s.queries.DeleteAnalysisByIDAndUserID(ctx, repository.DeleteAnalysisByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "Analysis not found")
		}
		return domain.Internal(err, op, "Failed to delete analysis")
	}

	for _, key := range []sql.NullString{keys.StorageKey, keys.ThumbnailKey} {
		if !key.Valid || key.String == "" {
			continue
		}
		if err := s.store.Delete(ctx, key.String); err != nil {
			// The database row is gone; orphaned objects are swept later by
			// the retention purge.
			s.logger.Warn("failed to delete stored object", "key", key.String, "error", err)
		}
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:     userID,
		Action:     "analysis.delete",
		Resource:   "analysis",
		ResourceID: id.String(),
	})
	return nil
}

func validateUpload(op string, mediaType domain.MediaType, params AnalyzeParams) error {
	if len(params.Content) == 0 {
		return domain.Invalid(op, "File is empty")
	}
	if params.Filename == "" {
		return domain.Invalid(op, "Filename is required")
	}

	var limit int64
	switch mediaType {
	case domain.MediaTypeVideo:
		if !storage.IsAllowedVideoType(params.MimeType) {
			return domain.Invalid(op, fmt.Sprintf("Unsupported video type %q", params.MimeType))
		}
		limit = MaxVideoUploadBytes
	case domain.MediaTypeText:
		limit = MaxTextUploadBytes
	default:
		if !storage.IsAllowedImageType(params.MimeType) {
			return domain.Invalid(op, fmt.Sprintf("Unsupported image type %q", params.MimeType))
		}
		limit = MaxImageUploadBytes
	}

	if int64(len(params.Content)) > limit {
		return domain.Invalid(op, fmt.Sprintf("File exceeds the %dMB limit for %s uploads",
			limit/(1024*1024), mediaType))
	}

	if ext := filepath.Ext(params.Filename); len(ext) > 10 {
		return domain.Invalid(op, "Invalid file extension")
	}
	return nil
}
