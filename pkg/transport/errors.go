package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP
// status code. Generation backpressure (unreachable model backend) is a
// 503 so clients and load balancers treat it as retryable; malformed
// model output and failing setup SQL are 500s because retrying the same
// request may well succeed with a fresh generation, but the fault is
// ours, not the caller's.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeSessionNotFound:
		return http.StatusNotFound
	case api.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case api.ErrorTypeGenerationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response using the
// ErrorResponse wrapper format from pkg/api. It sets the Content-Type
// header and writes the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status
// code from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError writes any error as a JSON error response. Non-APIError
// values are masked as a generic server_error so internal details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, apiErr)
		return
	}
	WriteAPIError(w, api.NewServerError("internal error"))
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
