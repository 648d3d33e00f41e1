package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError is a validation failure attached to a single form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// HTTPError represents a non-2xx HTTP response, or a 2xx response whose
// envelope reported failure.
type HTTPError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *HTTPError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsUnauthorized reports a 401 answer, the session-expired case.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsValidation reports a rejected form submission.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusUnprocessableEntity)
}

// ValidationError is returned by local form checks before any request is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
