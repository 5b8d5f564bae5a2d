package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/faketect/faketect/internal/auth"
	"github.com/faketect/faketect/internal/billing"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/service"
)

// BillingHandler handles subscription management backed by Stripe.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	logger      *slog.Logger
}

// NewBillingHandler creates a BillingHandler. billingService may be nil when
// Stripe is not configured; every endpoint then returns 501.
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes. All of them require a user.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/billing/subscription", requireUser(http.HandlerFunc(h.Subscription)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /api/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// notConfigured guards every endpoint when Stripe is absent.
func (h *BillingHandler) notConfigured(w http.ResponseWriter, r *http.Request) bool {
	if h.billing != nil {
		return false
	}
	ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTIMPL, "", "Billing is not configured"))
	return true
}

// Subscription returns the user's current plan and live Stripe state.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	resp := map[string]any{
		"plan":   user.Plan,
		"status": user.SubscriptionStatus,
	}

	if h.billing != nil && user.SubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.SubscriptionID)
		if err != nil {
			h.logger.Warn("failed to fetch stripe subscription", "error", err, "subscription_id", user.SubscriptionID)
		} else {
			resp["status"] = string(sub.Status)
			resp["cancel_at_period_end"] = sub.CancelAtPeriodEnd
			resp["current_period_end"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type checkoutRequest struct {
	Plan     string `json:"plan" validate:"required,oneof=STANDARD PROFESSIONAL BUSINESS ENTERPRISE"`
	Interval string `json:"interval" validate:"omitempty,oneof=month year"`
}

// CreateCheckout creates a Stripe Checkout session for upgrading and returns
// the redirect URL. The user's Stripe customer is created on first use.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Interval == "" {
		req.Interval = "month"
	}

	priceID := h.billing.PriceIDForPlan(domain.PlanID(req.Plan), req.Interval)
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No price configured for that plan"))
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.CreateCheckout", "Failed to create billing customer"))
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	successURL := h.baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := h.baseURL + "/billing"
	url, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.CreateCheckout", "Failed to create checkout session"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

// OpenPortal creates a Stripe Customer Portal session.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No billing account yet"))
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/billing")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.OpenPortal", "Failed to create portal session"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"portal_url": url})
}

// CancelSubscription sets the subscription to cancel at period end. The plan
// stays active until then; the webhook downgrades it on deletion.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No active subscription"))
		return
	}

	if err := h.billing.CancelSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.CancelSubscription", "Failed to cancel subscription"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation scheduled at period end"})
}

// ReactivateSubscription removes a pending cancellation.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No active subscription"))
		return
	}

	if err := h.billing.ReactivateSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.ReactivateSubscription", "Failed to reactivate subscription"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "subscription reactivated"})
}
