package handler

import (
	"log/slog"
	"net/http"

	"github.com/faketect/faketect/internal/auth"
	"github.com/faketect/faketect/internal/service"
)

// AccountHandler handles the GDPR endpoints: data export and account
// erasure.
type AccountHandler struct {
	gdprService service.GDPRService
	secure      bool
	logger      *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(gdprService service.GDPRService, secure bool, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{gdprService: gdprService, secure: secure, logger: logger}
}

// RegisterRoutes registers account routes.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/account/export", requireUser(http.HandlerFunc(h.RequestExport)))
	mux.Handle("DELETE /api/account", requireUser(http.HandlerFunc(h.DeleteAccount)))
}

// RequestExport queues a full data export. The archive link arrives by
// email once the job completes.
func (h *AccountHandler) RequestExport(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	jobID, err := h.gdprService.RequestExport(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "export queued, you will receive an email when it is ready",
		"job_id": jobID,
	})
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// DeleteAccount erases the account, its analyses, and stored media. The
// password recheck stops a hijacked session from destroying the account.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req deleteAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.gdprService.DeleteAccount(r.Context(), user.ID, req.Password); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ClearSessionCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}
