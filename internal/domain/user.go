// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for
// authentication. These types are separate from the repository models so the
// business layer is decoupled from the database layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// User represents a registered FakeTect account.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string // never exposed in API responses
	Name               string
	Plan               PlanID
	Usage              UsageCounters
	StripeCustomerID   string
	SubscriptionID     string
	SubscriptionStatus SubscriptionStatus
	EmailVerified      bool
	EmailVerifiedAt    *time.Time
	IsAdmin            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasPaidPlan returns true if the user is on any plan other than free.
func (u *User) HasPaidPlan() bool {
	return u.Plan != PlanFree
}

// CanAnalyzeVideo returns true if the user's plan includes video detection.
func (u *User) CanAnalyzeVideo() bool {
	for _, f := range GetPlan(u.Plan).Features {
		if f == "video_detection" {
			return true
		}
	}
	return false
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token; the raw token is only given to
// the client once, at login.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // raw password, hashed by the service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // raw session token, only returned once
}

// PasswordChangeParams contains parameters for changing a user's password.
type PasswordChangeParams struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// ProfileUpdateParams contains parameters for updating a user's profile.
type ProfileUpdateParams struct {
	UserID uuid.UUID
	Name   string
}

// UsageAdjustment is a manual admin correction to a user's counters. It is
// the only code path that may ever decrement usage.
type UsageAdjustment struct {
	UserID    uuid.UUID
	UsedToday *int
	UsedMonth *int
	UsedTotal *int
}
