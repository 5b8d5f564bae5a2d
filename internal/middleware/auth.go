// Package middleware contains HTTP middleware for the FakeTect API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed outermost-first in cmd/server.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/faketect/faketect/internal/auth"
	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/handler"
	"github.com/faketect/faketect/internal/service"
)

// AuthMiddleware resolves session tokens to users and guards routes.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthMiddleware creates an AuthMiddleware. isSecure controls the Secure
// flag when clearing stale cookies.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithUser loads the user from the session cookie or bearer token when one
// is present, then continues regardless. Handlers read the result with
// auth.GetUser.
//
// A token that fails validation clears the cookie so browsers stop
// resending it.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := handler.SessionTokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			if _, cookieErr := r.Cookie(handler.SessionCookieName); cookieErr == nil {
				handler.ClearSessionCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		r = r.WithContext(auth.SetUser(r.Context(), user))
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects unauthenticated requests with a 401. Must run after
// WithUser.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-admin requests with a 403. Must run after
// WithUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !user.IsAdmin {
			handler.ForbiddenResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireEmailVerified rejects users who have not confirmed their email.
// Must run after RequireUser.
func (m *AuthMiddleware) RequireEmailVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !user.EmailVerified {
			handler.ErrorResponse(w, r, m.logger, domain.Forbidden("", "Email verification required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
