package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/faketect/faketect/internal/auth"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/service"
)

// maxMultipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const maxMultipartMemory = 8 << 20

// AnalysisHandler handles media uploads and analysis history.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	quotaService    service.QuotaService
	logger          *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, quotaService service.QuotaService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		quotaService:    quotaService,
		logger:          logger,
	}
}

// RegisterRoutes registers analysis routes. All of them require a user.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/analyses", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/analyses", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/analyses/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /api/analyses/{id}", requireUser(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(h.Usage)))
	mux.HandleFunc("GET /api/plans", h.Plans)
}

// Create runs a detection on an upload. Images and videos arrive as
// multipart form data in the "file" field; text arrives as a JSON body.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	params, err := h.parseUpload(r, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.Analyze(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"analysis": h.analysisResponse(r, analysis)})
}

// parseUpload extracts AnalyzeParams from either a multipart or JSON body.
func (h *AnalysisHandler) parseUpload(r *http.Request, user *domain.User) (service.AnalyzeParams, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/json" {
		var req analyzeTextRequest
		if err := decodeJSON(r, &req); err != nil {
			return service.AnalyzeParams{}, err
		}
		return service.AnalyzeParams{
			UserID:   user.ID,
			Filename: "submission.txt",
			MimeType: "text/plain",
			Content:  []byte(req.Text),
		}, nil
	}

	if !strings.HasPrefix(contentType, "multipart/") {
		return service.AnalyzeParams{}, domain.Invalid("", "Expected multipart form data or JSON text body")
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return service.AnalyzeParams{}, domain.Wrap(err, domain.EINVALID, "", "Invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return service.AnalyzeParams{}, domain.Invalid("", "Missing \"file\" form field")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return service.AnalyzeParams{}, domain.Internal(err, "", "Failed to read upload")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	return service.AnalyzeParams{
		UserID:   user.ID,
		Filename: header.Filename,
		MimeType: mimeType,
		Content:  content,
	}, nil
}

type analyzeTextRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

// Get returns one analysis owned by the current user.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.GetByID(r.Context(), id, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": h.analysisResponse(r, analysis)})
}

// List returns a page of the user's analyses, newest first.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	limit, offset := pagination(r)

	analyses, total, err := h.analysisService.List(r.Context(), user.ID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(analyses))
	for _, a := range analyses {
		items = append(items, h.analysisResponse(r, a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": items,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Delete removes an analysis and its stored media.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.analysisService.Delete(r.Context(), id, user.ID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Usage returns the current user's quota consumption.
func (h *AnalysisHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	usage, err := h.quotaService.GetUsage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": usage})
}

// Plans returns the public plan catalog. No auth required; the pricing page
// uses it.
func (h *AnalysisHandler) Plans(w http.ResponseWriter, _ *http.Request) {
	type planView struct {
		ID                domain.PlanID `json:"id"`
		PerDay            int           `json:"per_day"`
		PerMonth          int           `json:"per_month"`
		TotalLimit        int           `json:"total_limit,omitempty"`
		PriceCentsMonthly int           `json:"price_cents_monthly"`
		PriceCentsYearly  int           `json:"price_cents_yearly"`
		Features          []string      `json:"features"`
	}

	order := []domain.PlanID{
		domain.PlanFree,
		domain.PlanStandard,
		domain.PlanProfessional,
		domain.PlanBusiness,
		domain.PlanEnterprise,
	}
	plans := make([]planView, 0, len(order))
	for _, id := range order {
		p := domain.GetPlan(id)
		plans = append(plans, planView{
			ID:                p.ID,
			PerDay:            p.PerDay,
			PerMonth:          p.PerMonth,
			TotalLimit:        p.TotalLimit,
			PriceCentsMonthly: p.PriceCentsMonthly,
			PriceCentsYearly:  p.PriceCentsYearly,
			Features:          p.Features,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// analysisResponse is the JSON shape for an analysis. Storage keys stay
// internal.
func (h *AnalysisHandler) analysisResponse(r *http.Request, a *domain.Analysis) map[string]any {
	resp := map[string]any{
		"id":         a.ID,
		"filename":   a.Filename,
		"media_type": a.MediaType,
		"size_bytes": a.SizeBytes,
		"ai_score":   a.AIScore,
		"is_ai":      a.IsAI,
		"confidence": a.Confidence,
		"verdict": map[string]any{
			"key":   a.Verdict.Key,
			"color": a.Verdict.Color,
			"label": verdictLabel(r, a.Verdict.Key),
		},
		"provider":   a.Provider,
		"demo":       a.Demo,
		"status":     a.Status,
		"created_at": a.CreatedAt.Format(time.RFC3339),
	}
	if a.Consensus != "" {
		resp["consensus"] = a.Consensus
	}
	if len(a.Sources) > 0 {
		resp["sources"] = a.Sources
	}
	if a.MediaType == domain.MediaTypeVideo {
		resp["frames_analyzed"] = a.FramesAnalyzed
	}
	return resp
}
