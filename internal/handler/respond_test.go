package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faketect/faketect/internal/domain"
)

type decodeTarget struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=10"`
}

func TestDecodeJSON_Valid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","name":"x"}`))

	var dst decodeTarget
	if err := decodeJSON(r, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Email != "a@b.com" {
		t.Errorf("expected email decoded, got %q", dst.Email)
	}
}

func TestDecodeJSON_MalformedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))

	var dst decodeTarget
	err := decodeJSON(r, &dst)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected EINVALID, got %s", domain.ErrorCode(err))
	}
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","bogus":1}`))

	var dst decodeTarget
	if err := decodeJSON(r, &dst); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeJSON_ValidationFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email","name":"this name is too long"}`))

	var dst decodeTarget
	err := decodeJSON(r, &dst)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(ve.Fields), ve.Fields)
	}
	if _, ok := ve.Fields["email"]; !ok {
		t.Error("expected lowercase field name 'email'")
	}
	if _, ok := ve.Fields["name"]; !ok {
		t.Error("expected lowercase field name 'name'")
	}
}

func TestPagination(t *testing.T) {
	testCases := []struct {
		name   string
		query  string
		limit  int
		offset int
	}{
		{"defaults", "", 20, 0},
		{"explicit", "limit=50&offset=10", 50, 10},
		{"over max ignored", "limit=500", 20, 0},
		{"zero limit ignored", "limit=0", 20, 0},
		{"negative offset ignored", "offset=-5", 20, 0},
		{"garbage ignored", "limit=abc&offset=xyz", 20, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			limit, offset := pagination(r)
			if limit != tc.limit || offset != tc.offset {
				t.Errorf("expected (%d, %d), got (%d, %d)", tc.limit, tc.offset, limit, offset)
			}
		})
	}
}

func TestPathUUID_Invalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/analyses/not-a-uuid", nil)
	r.SetPathValue("id", "not-a-uuid")

	_, err := pathUUID(r, "id")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("expected EINVALID, got %s", domain.ErrorCode(err))
	}
}
