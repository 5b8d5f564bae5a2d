package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/storage"
	"github.com/faketect/faketect/internal/worker"
)

// CompletedJobRetention is how long finished job rows are kept for
// review before the retention sweep drops them.
const CompletedJobRetention = 30 * 24 * time.Hour

// PurgeExpiredAnalysesHandler deletes analyses past the retention window
// along with their stored media, and trims old completed job rows.
type PurgeExpiredAnalysesHandler struct {
	queries *repository.Queries
	store   storage.Storage
	logger  *slog.Logger
}

// NewPurgeExpiredAnalysesHandler creates the handler.
func NewPurgeExpiredAnalysesHandler(queries *repository.Queries, store storage.Storage, logger *slog.Logger) *PurgeExpiredAnalysesHandler {
	return &PurgeExpiredAnalysesHandler{queries: queries, store: store, logger: logger}
}

// Type returns the job type identifier.
func (h *PurgeExpiredAnalysesHandler) Type() string {
	return worker.JobTypePurgeExpiredAnalyses
}

// Handle runs one retention sweep.
func (h *PurgeExpiredAnalysesHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.PurgeExpiredAnalysesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.RetentionDays <= 0 {
		return worker.NewPermanentError(fmt.Errorf("invalid retention: %d days", p.RetentionDays))
	}

	cutoff := time.Now().AddDate(0, 0, -p.RetentionDays)
	purged, err := h.queries.PurgeAnalysesCreatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge analyses: %w", err)
	}

	// Rows are already gone, so storage deletes are best effort. An orphaned
	// object costs pennies; a retried job re-deleting rows would not help.
	var orphans int
	for _, row := range purged {
		for _, key := range []string{row.StorageKey.String, row.ThumbnailKey.String} {
			if key == "" {
				continue
			}
			if err := h.store.Delete(ctx, key); err != nil {
				orphans++
				h.logger.Warn("failed to delete stored media during purge", "key", key, "error", err)
			}
		}
	}

	jobsDeleted, err := h.queries.DeleteCompletedJobsBefore(ctx, time.Now().Add(-CompletedJobRetention))
	if err != nil {
		return fmt.Errorf("trim completed jobs: %w", err)
	}

	h.logger.Info("retention sweep completed",
		"analyses_purged", len(purged),
		"orphaned_objects", orphans,
		"jobs_trimmed", jobsDeleted,
		"cutoff", cutoff,
	)
	return nil
}
