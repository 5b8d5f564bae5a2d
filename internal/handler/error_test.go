package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faketect/faketect/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	testCases := []struct {
		code   string
		status int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EGONE, http.StatusGone},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.EQUOTA, http.StatusTooManyRequests},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.ENOTIMPL, http.StatusNotImplemented},
		{"something_unknown", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tc.code); got != tc.status {
				t.Errorf("code %s: expected %d, got %d", tc.code, tc.status, got)
			}
		})
	}
}

func TestErrorResponse_DomainError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)

	ErrorResponse(w, r, testLogger(), domain.Errorf(domain.ENOTFOUND, "test", "Analysis not found"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != domain.ENOTFOUND {
		t.Errorf("expected code %s, got %s", domain.ENOTFOUND, body.Error.Code)
	}
	if body.Error.Message != "Analysis not found" {
		t.Errorf("unexpected message %q", body.Error.Message)
	}
}

func TestErrorResponse_QuotaDenialCarriesReason(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/analyses", nil)

	ErrorResponse(w, r, testLogger(), domain.QuotaExceeded("test", domain.DenialDailyLimit))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != domain.EQUOTA {
		t.Errorf("expected quota code, got %s", body.Error.Code)
	}
	if body.Error.Reason != string(domain.DenialDailyLimit) {
		t.Errorf("expected reason %q, got %q", domain.DenialDailyLimit, body.Error.Reason)
	}
}

func TestErrorResponse_ValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)

	ve := &domain.ValidationError{Fields: map[string]string{
		"email":    "Must be a valid email address",
		"password": "Must be at least 8 characters",
	}}
	ErrorResponse(w, r, testLogger(), ve)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != domain.EINVALID {
		t.Errorf("expected invalid code, got %s", body.Error.Code)
	}
	if len(body.Error.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(body.Error.Fields))
	}
	if body.Error.Fields["email"] == "" {
		t.Error("expected email field error")
	}
}

func TestErrorResponse_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/usage", nil)

	ErrorResponse(w, r, testLogger(), io.ErrUnexpectedEOF)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// Internal details never leak to the client.
	if body.Error.Message == io.ErrUnexpectedEOF.Error() {
		t.Error("raw error message leaked to client")
	}
}
