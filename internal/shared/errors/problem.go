// Package errors renders RFC 7807 problem documents for the storefront API.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail == "" {
		return p.Title
	}
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension copies the extension map so shared templates stay untouched.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

func problem(slug, title string, status int) ProblemDetail {
	return ProblemDetail{Type: "/problems/" + slug, Title: title, Status: status}
}

var (
	ErrBadRequest    = problem("bad-request", "Bad Request", http.StatusBadRequest)
	ErrValidation    = problem("validation-error", "Validation Error", http.StatusBadRequest)
	ErrNotFound      = problem("not-found", "Resource Not Found", http.StatusNotFound)
	ErrConflict      = problem("conflict", "Conflict", http.StatusConflict)
	ErrUnprocessable = problem("unprocessable-entity", "Unprocessable Entity", http.StatusUnprocessableEntity)
	ErrInternal      = problem("internal-error", "Internal Server Error", http.StatusInternalServerError)
)

// NewValidationProblem reports per-field failures under the "fields" extension.
func NewValidationProblem(fieldErrors map[string]string) ProblemDetail {
	return ErrValidation.WithExtension("fields", fieldErrors)
}
