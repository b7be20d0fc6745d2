// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// GetAndValidateURLParam extracts, decodes, and validates a URL parameter from the request.
// Returns the decoded value or an ErrBadRequest error if invalid.
// Validation rules:
// - Must not be empty after trimming whitespace
// - Must not contain any whitespace characters
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	// Extract from chi router
	encodedValue := chi.URLParam(r, paramName)

	// Decode
	decoded, err := url.PathUnescape(encodedValue)
	if err != nil {
		return "", service.BadRequestf("invalid URL encoding in %s", paramName)
	}

	// Validate - check if empty
	if strings.TrimSpace(decoded) == "" {
		return "", service.BadRequestf("%s cannot be empty", paramName)
	}

	// Validate - check for whitespace
	if strings.ContainsAny(decoded, " \t\n\r") {
		return "", service.BadRequestf("%s cannot contain whitespace", paramName)
	}

	return decoded, nil
}
