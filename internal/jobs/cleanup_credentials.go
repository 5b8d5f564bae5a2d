package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/worker"
)

// CleanupCredentialsHandler drops expired sessions and one-time tokens.
type CleanupCredentialsHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewCleanupCredentialsHandler creates the handler.
func NewCleanupCredentialsHandler(queries *repository.Queries, logger *slog.Logger) *CleanupCredentialsHandler {
	return &CleanupCredentialsHandler{queries: queries, logger: logger}
}

// Type returns the job type identifier.
func (h *CleanupCredentialsHandler) Type() string {
	return worker.JobTypeCleanupCredentials
}

// Handle removes every expired session and token.
func (h *CleanupCredentialsHandler) Handle(ctx context.Context, _ []byte) error {
	sessions, err := h.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	tokens, err := h.queries.DeleteExpiredTokens(ctx)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	if sessions > 0 || tokens > 0 {
		h.logger.Info("credential cleanup completed", "sessions", sessions, "tokens", tokens)
	}
	return nil
}
