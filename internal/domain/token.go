// Package domain contains core business types and interfaces.
//
// This file defines one-time tokens for the email verification and password
// reset flows. Only SHA-256 hashes of tokens are ever stored; the raw token
// is sent to the user exactly once.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose distinguishes the one-time token flows.
type TokenPurpose string

const (
	TokenPurposeVerifyEmail   TokenPurpose = "verify_email"
	TokenPurposeResetPassword TokenPurpose = "reset_password"
)

const (
	// EmailVerificationTokenDuration is how long verification tokens stay valid.
	EmailVerificationTokenDuration = 24 * time.Hour

	// PasswordResetTokenDuration is shorter due to higher risk.
	PasswordResetTokenDuration = 1 * time.Hour

	// TokenBytes is the number of random bytes per token; hex-encoded to 64
	// characters for URL safety.
	TokenBytes = 32
)

// Token is a one-time token tied to a user.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string // SHA-256 of the raw token
	ExpiresAt time.Time
	UsedAt    *time.Time // nil = unused
	CreatedAt time.Time
}

// IsExpired returns true if the token has expired.
func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed returns true if the token has already been consumed.
func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

// IsValid returns true if the token is neither expired nor used.
func (t *Token) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}

// IssuedToken is the result of creating a token: the raw value to email plus
// its expiry.
type IssuedToken struct {
	Token     string // raw token (NOT the hash)
	ExpiresAt time.Time
	UserID    uuid.UUID
}
