package jobs

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/storage"
	"github.com/faketect/faketect/internal/worker"
)

// ExportURLTTL is how long the presigned download link stays valid.
const ExportURLTTL = 7 * 24 * time.Hour

// ExportUserDataHandler assembles a user's complete data into a JSON
// document, uploads it, and queues the notification email with a download
// link.
type ExportUserDataHandler struct {
	queries *repository.Queries
	store   storage.Storage
	logger  *slog.Logger
}

// NewExportUserDataHandler creates the handler.
func NewExportUserDataHandler(queries *repository.Queries, store storage.Storage, logger *slog.Logger) *ExportUserDataHandler {
	return &ExportUserDataHandler{queries: queries, store: store, logger: logger}
}

// Type returns the job type identifier.
func (h *ExportUserDataHandler) Type() string {
	return worker.JobTypeExportUserData
}

// exportDocument is the serialized shape of a data export.
type exportDocument struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Account     exportAccount    `json:"account"`
	Analyses    []exportAnalysis `json:"analyses"`
}

type exportAccount struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Plan          string    `json:"plan"`
	UsedToday     int32     `json:"used_today"`
	UsedMonth     int32     `json:"used_month"`
	UsedTotal     int32     `json:"used_total"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type exportAnalysis struct {
	ID             uuid.UUID       `json:"id"`
	Filename       string          `json:"filename"`
	MediaType      string          `json:"media_type"`
	AIScore        float64         `json:"ai_score"`
	IsAI           bool            `json:"is_ai"`
	Confidence     float64         `json:"confidence"`
	Verdict        string          `json:"verdict"`
	Provider       string          `json:"provider"`
	Demo           bool            `json:"demo"`
	Consensus      string          `json:"consensus,omitempty"`
	Sources        json.RawMessage `json:"sources,omitempty"`
	FramesAnalyzed int32           `json:"frames_analyzed,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Handle builds and stores the export.
func (h *ExportUserDataHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.ExportUserDataPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	user, err := h.queries.GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Account was deleted after the export was requested.
			return worker.NewPermanentError(fmt.Errorf("user not found: %s", p.UserID))
		}
		return fmt.Errorf("fetch user: %w", err)
	}

	analyses, err := h.queries.ListAllAnalysesByUserID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("fetch analyses: %w", err)
	}

	doc := exportDocument{
		GeneratedAt: time.Now().UTC(),
		Account: exportAccount{
			ID:            user.ID,
			Email:         user.Email,
			Name:          user.Name,
			Plan:          user.Plan,
			UsedToday:     user.UsedToday,
			UsedMonth:     user.UsedMonth,
			UsedTotal:     user.UsedTotal,
			EmailVerified: user.EmailVerified,
			CreatedAt:     user.CreatedAt,
		},
		Analyses: make([]exportAnalysis, 0, len(analyses)),
	}
	for _, a := range analyses {
		item := exportAnalysis{
			ID:             a.ID,
			Filename:       a.Filename,
			MediaType:      a.MediaType,
			AIScore:        a.AiScore,
			IsAI:           a.IsAi,
			Confidence:     a.Confidence,
			Verdict:        a.VerdictKey,
			Provider:       a.Provider,
			Demo:           a.Demo,
			Consensus:      a.Consensus.String,
			FramesAnalyzed: a.FramesAnalyzed,
			CreatedAt:      a.CreatedAt,
		}
		if a.Sources.Valid {
			item.Sources = a.Sources.RawMessage
		}
		doc.Analyses = append(doc.Analyses, item)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return worker.NewPermanentError(fmt.Errorf("marshal export: %w", err))
	}

	key := storage.ExportKey(p.UserID)
	err = h.store.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}

	downloadURL, err := h.store.URL(ctx, key, ExportURLTTL)
	if err != nil {
		return fmt.Errorf("presign export: %w", err)
	}

	_, err = worker.EnqueueSendEmail(ctx, h.queries, worker.SendEmailPayload{
		To:       user.Email,
		Template: EmailTemplateExportReady,
		Data: map[string]string{
			"name":         user.Name,
			"download_url": downloadURL,
		},
	})
	if err != nil {
		return fmt.Errorf("queue notification email: %w", err)
	}

	h.logger.Info("data export completed",
		"user_id", p.UserID,
		"analyses", len(doc.Analyses),
		"key", key,
	)
	return nil
}
