// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/faketect/faketect/internal/domain"
	"github.com/faketect/faketect/internal/metrics"
	"github.com/faketect/faketect/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing. Cost 12 is
	// roughly 250ms on current hardware, slow enough for offline attacks and
	// fast enough for login flows.
	BcryptCost = 12

	// SessionTokenBytes is the entropy of session tokens. 32 bytes are
	// hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session stays valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength follows NIST SP 800-63B.
	MinPasswordLength = 8

	// MaxPasswordLength stops above bcrypt's 72-byte input limit.
	MaxPasswordLength = 72
)

// UserService defines the account, session, and credential operations.
type UserService interface {
	// Register creates a new account on the free plan.
	// Returns domain.ECONFLICT if the email is taken.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates and opens a session, returning the raw token.
	// Returns domain.EUNAUTHORIZED for bad credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout revokes a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken resolves a raw session token to its user.
	// Returns domain.EUNAUTHORIZED if the token is unknown or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// UpdateProfile updates mutable profile fields.
	UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) (*domain.User, error)

	// ChangePassword verifies the current password, sets the new one, and
	// revokes every session.
	ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error

	// CreateEmailVerificationToken issues a fresh verification token,
	// invalidating any outstanding one.
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.IssuedToken, error)

	// VerifyEmail consumes a verification token and marks the email verified.
	VerifyEmail(ctx context.Context, token string) error

	// CreatePasswordResetToken issues a reset token for the email, if it
	// exists. Callers must not reveal whether it did.
	CreatePasswordResetToken(ctx context.Context, email string) (*domain.IssuedToken, error)

	// ResetPassword consumes a reset token, sets the password, and revokes
	// every session.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error

	// UpdateSubscription moves the user to a plan with subscription state.
	UpdateSubscription(ctx context.Context, userID uuid.UUID, plan domain.PlanID, subscriptionID string, status domain.SubscriptionStatus) (*domain.User, error)

	// GetByStripeCustomerID resolves a Stripe customer to a user.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)

	// CleanupExpired removes expired sessions and tokens. Run periodically.
	CleanupExpired(ctx context.Context) error
}

type userService struct {
	queries *repository.Queries
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(queries *repository.Queries, audit AuditRecorder, logger *slog.Logger) UserService {
	return &userService{queries: queries, audit: audit, logger: logger}
}

// Register creates an account after validating email and password. The
// password is hashed even when the email is taken so response timing does
// not leak account existence.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	repoUser, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
		Plan:         string(domain.PlanFree),
	})
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	metrics.UsersRegistered.Inc()
	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.audit.Record(ctx, AuditEntry{
		UserID:   user.ID,
		Action:   "user.register",
		Resource: "user",
	})
	return user, nil
}

// Login authenticates and opens a session. The raw token is returned once
// and only its SHA-256 hash is stored.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so unknown emails take as long as
			// wrong passwords.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateToken(SessionTokenBytes)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		ID:        uuid.New(),
		UserID:    repoUser.ID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(SessionDuration),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID)
	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout revokes the session. Unknown or malformed tokens are ignored.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}
	return s.queries.DeleteSessionByTokenHash(ctx, hashToken(token))
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid session")
	}

	row, err := s.queries.GetSessionWithUser(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid session")
		}
		return nil, domain.Internal(err, op, "Failed to validate session")
	}

	user := repoUserToDomain(row.User)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) (*domain.User, error) {
	const op = "UserService.UpdateProfile"

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}

	updated, err := s.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
		ID:   params.UserID,
		Name: params.Name,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to update profile")
	}

	user := repoUserToDomain(updated)
	user.PasswordHash = ""
	return user, nil
}

// ChangePassword requires the current password and revokes every session so
// a stolen credential cannot keep a foothold.
func (s *userService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	const op = "UserService.ChangePassword"

	repoUser, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "User not found")
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.CurrentPassword)); err != nil {
		return domain.Unauthorized(op, "Current password is incorrect")
	}
	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           params.UserID,
		PasswordHash: string(newHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.DeleteSessionsByUserID(ctx, params.UserID); err != nil {
		s.logger.Error("failed to revoke sessions after password change", "user_id", params.UserID, "error", err)
	}

	s.logger.Info("password changed", "user_id", params.UserID)
	s.audit.Record(ctx, AuditEntry{
		UserID:   params.UserID,
		Action:   "user.password_change",
		Resource: "user",
	})
	return nil
}

// CreateEmailVerificationToken invalidates outstanding verification tokens
// and issues a fresh one.
func (s *userService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.IssuedToken, error) {
	const op = "UserService.CreateEmailVerificationToken"

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	if repoUser.EmailVerified {
		return nil, domain.Conflict(op, "Email is already verified")
	}

	return s.issueToken(ctx, op, userID, domain.TokenPurposeVerifyEmail, domain.EmailVerificationTokenDuration)
}

// VerifyEmail consumes a verification token.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	const op = "UserService.VerifyEmail"

	repoToken, err := s.consumeToken(ctx, op, token, domain.TokenPurposeVerifyEmail)
	if err != nil {
		return err
	}

	if err := s.queries.UpdateUserEmailVerification(ctx, repoToken.UserID); err != nil {
		return domain.Internal(err, op, "Failed to mark email verified")
	}

	s.logger.Info("email verified", "user_id", repoToken.UserID)
	return nil
}

// CreatePasswordResetToken issues a reset token. A missing account returns
// ENOTFOUND to the caller, who must present the generic "if that email
// exists" message either way.
func (s *userService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.IssuedToken, error) {
	const op = "UserService.CreatePasswordResetToken"

	email = strings.ToLower(strings.TrimSpace(email))
	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "No account with that email")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	return s.issueToken(ctx, op, repoUser.ID, domain.TokenPurposeResetPassword, domain.PasswordResetTokenDuration)
}

// ResetPassword consumes a reset token and revokes every session.
func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "UserService.ResetPassword"

	if err := validatePassword(newPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	repoToken, err := s.consumeToken(ctx, op, token, domain.TokenPurposeResetPassword)
	if err != nil {
		return err
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}
	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           repoToken.UserID,
		PasswordHash: string(newHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.DeleteSessionsByUserID(ctx, repoToken.UserID); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", "user_id", repoToken.UserID, "error", err)
	}

	s.logger.Info("password reset", "user_id", repoToken.UserID)
	s.audit.Record(ctx, AuditEntry{
		UserID:   repoToken.UserID,
		Action:   "user.password_reset",
		Resource: "user",
	})
	return nil
}

func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "UserService.UpdateStripeCustomer"

	err := s.queries.UpdateUserStripeCustomer(ctx, repository.UpdateUserStripeCustomerParams{
		ID:               userID,
		StripeCustomerID: toNullString(customerID),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to save Stripe customer")
	}
	return nil
}

func (s *userService) UpdateSubscription(ctx context.Context, userID uuid.UUID, plan domain.PlanID, subscriptionID string, status domain.SubscriptionStatus) (*domain.User, error) {
	const op = "UserService.UpdateSubscription"

	if _, ok := domain.Plans[plan]; !ok {
		return nil, domain.Invalid(op, "Unknown plan")
	}

	updated, err := s.queries.UpdateUserSubscription(ctx, repository.UpdateUserSubscriptionParams{
		ID:                 userID,
		Plan:               string(plan),
		SubscriptionID:     toNullString(subscriptionID),
		SubscriptionStatus: toNullString(string(status)),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to update subscription")
	}

	s.logger.Info("subscription updated", "user_id", userID, "plan", plan, "status", status)
	return repoUserToDomain(updated), nil
}

func (s *userService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	const op = "UserService.GetByStripeCustomerID"

	repoUser, err := s.queries.GetUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	return repoUserToDomain(repoUser), nil
}

// CleanupExpired sweeps expired sessions and one-time tokens.
func (s *userService) CleanupExpired(ctx context.Context) error {
	const op = "UserService.CleanupExpired"

	sessions, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired sessions")
	}
	tokens, err := s.queries.DeleteExpiredTokens(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired tokens")
	}
	if sessions > 0 || tokens > 0 {
		s.logger.Info("expired credentials cleaned up", "sessions", sessions, "tokens", tokens)
	}
	return nil
}

// issueToken replaces any outstanding token of the purpose and returns the
// raw value for delivery by email.
func (s *userService) issueToken(ctx context.Context, op string, userID uuid.UUID, purpose domain.TokenPurpose, ttl time.Duration) (*domain.IssuedToken, error) {
	err := s.queries.DeleteTokensByUser(ctx, repository.DeleteTokensByUserParams{
		UserID:  userID,
		Purpose: string(purpose),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to invalidate old tokens")
	}

	raw, err := generateToken(domain.TokenBytes)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}

	expiresAt := time.Now().Add(ttl)
	_, err = s.queries.CreateToken(ctx, repository.CreateTokenParams{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   string(purpose),
		TokenHash: hashToken(raw),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create token")
	}

	return &domain.IssuedToken{Token: raw, ExpiresAt: expiresAt, UserID: userID}, nil
}

// consumeToken validates a raw token and marks it used.
func (s *userService) consumeToken(ctx context.Context, op, token string, purpose domain.TokenPurpose) (*repository.Token, error) {
	if len(token) != domain.TokenBytes*2 {
		return nil, domain.NotFound(op, "Invalid or expired token")
	}

	repoToken, err := s.queries.GetTokenByHash(ctx, repository.GetTokenByHashParams{
		TokenHash: hashToken(token),
		Purpose:   string(purpose),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Invalid or expired token")
		}
		return nil, domain.Internal(err, op, "Failed to look up token")
	}

	if repoToken.UsedAt.Valid || time.Now().After(repoToken.ExpiresAt) {
		return nil, domain.NotFound(op, "Invalid or expired token")
	}

	if err := s.queries.MarkTokenUsed(ctx, repoToken.ID); err != nil {
		return nil, domain.Internal(err, op, "Failed to consume token")
	}
	return &repoToken, nil
}

// generateToken returns n random bytes hex-encoded.
func generateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken returns the hex SHA-256 of a raw token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
