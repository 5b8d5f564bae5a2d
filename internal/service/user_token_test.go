package service

import (
	"testing"
	"time"
)

func TestGenerateToken_LengthAndUniqueness(t *testing.T) {
	a, err := generateToken(SessionTokenBytes)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	b, err := generateToken(SessionTokenBytes)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}

	// 32 bytes hex-encode to 64 characters.
	if len(a) != SessionTokenBytes*2 {
		t.Errorf("expected %d chars, got %d", SessionTokenBytes*2, len(a))
	}
	if a == b {
		t.Error("two tokens should never collide")
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	token := "abc123"

	h1 := hashToken(token)
	h2 := hashToken(token)
	if h1 != h2 {
		t.Error("same token must hash to the same value")
	}
	if h1 == token {
		t.Error("hash must not equal the raw token")
	}

	// SHA-256 hex digest is always 64 characters.
	if len(h1) != 64 {
		t.Errorf("expected 64 char digest, got %d", len(h1))
	}

	if hashToken("abc124") == h1 {
		t.Error("different tokens must hash differently")
	}
}

func TestSessionDuration(t *testing.T) {
	if SessionDuration != 7*24*time.Hour {
		t.Errorf("session duration changed: %v", SessionDuration)
	}
}
