// Package handler contains the HTTP handlers for the FakeTect API.
//
// All endpoints speak JSON. Handlers translate HTTP requests into service
// calls and service errors into JSON error responses; they hold no business
// logic of their own.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/faketect/faketect/internal/domain"
)

// validate is the shared request validator. validator.Validate is safe for
// concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// maxJSONBodyBytes caps JSON request bodies. Media uploads use multipart and
// have their own per-type limits.
const maxJSONBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses and validates a JSON request body into dst.
// Returns a domain.EINVALID error on malformed JSON or failed validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Wrap(err, domain.EINVALID, "", "Invalid JSON request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ve := &domain.ValidationError{Fields: map[string]string{}}
			for _, fe := range verrs {
				ve.Fields[strings.ToLower(fe.Field())] = validationMessage(fe)
			}
			return ve
		}
		return domain.Wrap(err, domain.EINVALID, "", "Validation failed")
	}
	return nil
}

// validationMessage renders a human-readable message for one field error.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}

// pathUUID parses a UUID path segment. Returns domain.EINVALID on garbage so
// malformed IDs read as a client error rather than a 404 or 500.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("", "Invalid "+name+" in URL")
	}
	return id, nil
}

// pagination extracts limit/offset query parameters with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// requestLogger returns a logger annotated with request basics.
func requestLogger(logger *slog.Logger, r *http.Request) *slog.Logger {
	return logger.With("method", r.Method, "path", r.URL.Path)
}
