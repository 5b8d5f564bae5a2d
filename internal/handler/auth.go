package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/faketect/faketect/internal/auth"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/jobs"
	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/service"
	"github.com/faketect/faketect/internal/worker"
)

const (
	SessionCookieName   = "faketect_session"
	sessionCookiePath   = "/"
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// AuthHandler handles registration, login, and credential flows.
type AuthHandler struct {
	userService service.UserService
	queries     *repository.Queries
	secure      bool
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure controls the session
// cookie's Secure flag and should be true whenever the site is served over
// HTTPS.
func NewAuthHandler(userService service.UserService, queries *repository.Queries, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		queries:     queries,
		secure:      secure,
		logger:      logger,
	}
}

// AuthRateLimits carries per-endpoint rate limiters for the credential
// routes. Nil fields leave the route unlimited.
type AuthRateLimits struct {
	Login         func(http.Handler) http.Handler
	Register      func(http.Handler) http.Handler
	PasswordReset func(http.Handler) http.Handler
}

func limited(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}

// RegisterRoutes registers auth routes. requireUser guards the
// authenticated endpoints.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler, limits AuthRateLimits) {
	mux.Handle("POST /api/auth/register", limited(limits.Register, h.Register))
	mux.Handle("POST /api/auth/login", limited(limits.Login, h.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("POST /api/auth/verify-email", h.VerifyEmail)
	mux.Handle("POST /api/auth/forgot-password", limited(limits.PasswordReset, h.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", h.ResetPassword)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/auth/resend-verification", requireUser(http.HandlerFunc(h.ResendVerification)))
	mux.Handle("PATCH /api/account/profile", requireUser(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("POST /api/account/password", requireUser(http.HandlerFunc(h.ChangePassword)))
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// Register creates a free-plan account and queues the verification email.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.sendVerificationEmail(r, user)

	writeJSON(w, http.StatusCreated, map[string]any{"user": userResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates and opens a session. The raw token is returned in the
// body for API clients and set as an HttpOnly cookie for browsers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	SetSessionCookie(w, result.Token, h.secure)
	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  userResponse(result.User),
	})
}

// Logout revokes the current session. Idempotent; always returns 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := SessionTokenFromRequest(r); token != "" {
		if err := h.userService.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}
	ClearSessionCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userResponse(user)})
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyEmail consumes a verification token from the emailed link.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), req.Token); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// ResendVerification issues a fresh verification token for the current user.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if user.EmailVerified {
		ErrorResponse(w, r, h.logger, domain.Conflict("", "Email is already verified"))
		return
	}

	h.sendVerificationEmail(r, user)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword starts the password reset flow. The response is identical
// whether or not the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	issued, err := h.userService.CreatePasswordResetToken(r.Context(), req.Email)
	if err == nil && issued != nil {
		_, qerr := worker.EnqueueSendEmail(r.Context(), h.queries, worker.SendEmailPayload{
			To:       req.Email,
			Template: jobs.EmailTemplatePasswordReset,
			Data:     map[string]string{"token": issued.Token},
		})
		if qerr != nil {
			h.logger.Error("failed to queue password reset email", "error", qerr)
		}
	} else if err != nil {
		h.logger.Info("password reset requested for unknown email")
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "If that email exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// UpdateProfile updates mutable profile fields.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), domain.ProfileUpdateParams{
		UserID: user.ID,
		Name:   req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userResponse(updated)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword rotates the password and revokes every session, including
// this one. The client must log in again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed, please log in again"})
}

// sendVerificationEmail issues a token and queues the email. Failures are
// logged, not surfaced; the user can always request a resend.
func (h *AuthHandler) sendVerificationEmail(r *http.Request, user *domain.User) {
	issued, err := h.userService.CreateEmailVerificationToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to create verification token", "error", err, "user_id", user.ID)
		return
	}
	_, err = worker.EnqueueSendEmail(r.Context(), h.queries, worker.SendEmailPayload{
		To:       user.Email,
		Template: jobs.EmailTemplateVerification,
		Data: map[string]string{
			"name":  user.DisplayName(),
			"token": issued.Token,
		},
	})
	if err != nil {
		h.logger.Error("failed to queue verification email", "error", err, "user_id", user.ID)
	}
}

// userResponse is the JSON shape for a user. The password hash and Stripe
// identifiers never leave the server.
func userResponse(u *domain.User) map[string]any {
	return map[string]any{
		"id":                  u.ID,
		"email":               u.Email,
		"name":                u.Name,
		"plan":                u.Plan,
		"email_verified":      u.EmailVerified,
		"is_admin":            u.IsAdmin,
		"subscription_status": u.SubscriptionStatus,
		"created_at":          u.CreatedAt.Format(time.RFC3339),
	}
}

// SetSessionCookie sets the HttpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     sessionCookiePath,
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie deletes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionTokenFromRequest extracts the raw session token from the cookie or
// an Authorization bearer header. Cookie wins when both are present.
func SessionTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) > len(prefix) && authz[:len(prefix)] == prefix {
		return authz[len(prefix):]
	}
	return ""
}
