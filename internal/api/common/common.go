package common

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// Error types reported in the errorType field of an error response
const (
	ErrorTypeBadRequest = "BadRequestException"
	ErrorTypeNotFound   = "ResourceNotFoundException"
	ErrorTypeConflict   = "ConflictException"
	ErrorTypeInternal   = "InternalServerError"

	ErrorTypeUnauthorized = "UnauthorizedException"
	ErrorTypeForbidden    = "AccessDeniedException"
)

// ErrorResponse is the body of every non 2xx response
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message, errorType string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Message: message, ErrorType: errorType}, statusCode)
}

// WriteServiceError maps err onto its HTTP status and writes it. Internal
// errors are logged with their cause and reported generically.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		WriteErrorResponse(w, service.Message(err), ErrorTypeBadRequest, http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		WriteErrorResponse(w, service.Message(err), ErrorTypeNotFound, http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		WriteErrorResponse(w, service.Message(err), ErrorTypeConflict, http.StatusConflict)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteErrorResponse(w, service.Message(err), ErrorTypeInternal, http.StatusInternalServerError)
	}
}

// DecodeJSONBody decodes the request body into v, rejecting unknown fields
func DecodeJSONBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return service.BadRequestf("invalid request body: %v", err)
	}
	return nil
}

// DecodeOptionalJSONBody is DecodeJSONBody for endpoints whose body may be
// omitted. An empty body leaves v unchanged.
func DecodeOptionalJSONBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return service.BadRequestf("invalid request body: %v", err)
	}
	return nil
}
