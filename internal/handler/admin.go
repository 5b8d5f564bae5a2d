package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/service"
)

// AdminHandler handles the operator endpoints. Every route sits behind the
// requireAdmin middleware.
type AdminHandler struct {
	adminService service.AdminService
	quotaService service.QuotaService
	audit        service.AuditRecorder
	logger       *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(adminService service.AdminService, quotaService service.QuotaService, audit service.AuditRecorder, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		quotaService: quotaService,
		audit:        audit,
		logger:       logger,
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/admin/stats", requireAdmin(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/admin/users", requireAdmin(http.HandlerFunc(h.ListUsers)))
	mux.Handle("PATCH /api/admin/users/{id}/usage", requireAdmin(http.HandlerFunc(h.AdjustUsage)))
	mux.Handle("GET /api/admin/audit", requireAdmin(http.HandlerFunc(h.AuditLog)))
	mux.Handle("GET /api/admin/users/{id}/audit", requireAdmin(http.HandlerFunc(h.UserAuditLog)))
}

// Stats returns platform-wide counters for the admin dashboard.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers returns a page of accounts with usage counters.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	users, total, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		items = append(items, adminUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type adjustUsageRequest struct {
	UsedToday *int `json:"used_today" validate:"omitempty,min=0"`
	UsedMonth *int `json:"used_month" validate:"omitempty,min=0"`
	UsedTotal *int `json:"used_total" validate:"omitempty,min=0"`
}

// AdjustUsage sets a user's usage counters directly. This is the only code
// path that may ever decrement usage.
func (h *AdminHandler) AdjustUsage(w http.ResponseWriter, r *http.Request) {
	targetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req adjustUsageRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.UsedToday == nil && req.UsedMonth == nil && req.UsedTotal == nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Nothing to adjust"))
		return
	}

	user, err := h.quotaService.AdminAdjust(r.Context(), domain.UsageAdjustment{
		UserID:    targetID,
		UsedToday: req.UsedToday,
		UsedMonth: req.UsedMonth,
		UsedTotal: req.UsedTotal,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": adminUserResponse(user)})
}

// AuditLog returns the most recent audit entries across all users.
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	entries, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": auditResponses(entries)})
}

// UserAuditLog returns the audit trail for one user.
func (h *AdminHandler) UserAuditLog(w http.ResponseWriter, r *http.Request) {
	targetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	limit, offset := pagination(r)

	entries, err := h.audit.ListByUser(r.Context(), targetID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": auditResponses(entries)})
}

// adminUserResponse exposes more than the self-serve view: counters,
// subscription state, and verification status.
func adminUserResponse(u *domain.User) map[string]any {
	return map[string]any{
		"id":                  u.ID,
		"email":               u.Email,
		"name":                u.Name,
		"plan":                u.Plan,
		"used_today":          u.Usage.UsedToday,
		"used_month":          u.Usage.UsedMonth,
		"used_total":          u.Usage.UsedTotal,
		"last_reset":          u.Usage.LastReset.Format(time.RFC3339),
		"subscription_status": u.SubscriptionStatus,
		"email_verified":      u.EmailVerified,
		"is_admin":            u.IsAdmin,
		"created_at":          u.CreatedAt.Format(time.RFC3339),
	}
}

func auditResponses(entries []repository.AuditLog) []map[string]any {
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":         e.ID,
			"action":     e.Action,
			"resource":   e.Resource,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		}
		if e.UserID.Valid {
			item["user_id"] = e.UserID.UUID
		}
		if e.ResourceID.Valid {
			item["resource_id"] = e.ResourceID.String
		}
		if e.IPAddress.Valid {
			item["ip_address"] = e.IPAddress.String
		}
		if e.Metadata.Valid {
			item["metadata"] = json.RawMessage(e.Metadata.RawMessage)
		}
		items = append(items, item)
	}
	return items
}
