package service

import (
	"strings"

	"github.com/faketect/faketect/internal/domain"
)

// validateEmail performs structural checks only; deliverability is confirmed
// by the verification email.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	at := strings.Count(email, "@")
	if at != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	idx := strings.Index(email, "@")
	if idx == 0 || idx == len(email)-1 {
		return domain.Invalid("", "Email is malformed")
	}
	if !strings.Contains(email[idx+1:], ".") {
		return domain.Invalid("", "Email domain is malformed")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}
	return nil
}
