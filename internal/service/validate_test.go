package service

import (
	"strings"
	"testing"

	"github.com/faketect/faketect/internal/domain"
)

func TestValidatePassword_Length(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"too short - 7 chars", "Abcdef1", false},
		{"minimum - 8 chars", "Abcdef12", true},
		{"longer - 12 chars", "Abcdefgh1234", true},
		{"at bcrypt limit - 72 chars", strings.Repeat("Aa1", 24), true},
		{"over bcrypt limit - 75 chars", strings.Repeat("Aa1", 25), false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidatePassword_ErrorCode(t *testing.T) {
	err := validatePassword("short")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected EINVALID, got %s", domain.ErrorCode(err))
	}
}

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		name  string
		email string
		valid bool
	}{
		{"normal address", "user@example.com", true},
		{"subdomain", "user@mail.example.com", true},
		{"plus tag", "user+tag@example.com", true},
		{"empty", "", false},
		{"no at sign", "userexample.com", false},
		{"two at signs", "user@@example.com", false},
		{"leading at", "@example.com", false},
		{"trailing at", "user@", false},
		{"no dot in domain", "user@localhost", false},
		{"too long", strings.Repeat("a", 250) + "@x.com", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEmail(tc.email)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected error")
			}
		})
	}
}
