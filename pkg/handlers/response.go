package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/statline-io/statline-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteDomainError maps the typed domain errors onto HTTP status codes.
// Unknown errors become a 500 with a generic message.
func WriteDomainError(w http.ResponseWriter, err error) error {
	switch {
	case apperrors.IsNotFound(err):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case apperrors.IsValidation(err):
		return ErrorResponse(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case apperrors.IsVersionConflict(err):
		return ErrorResponse(w, http.StatusConflict, "version_conflict", err.Error())
	case apperrors.IsPropagationDepthExceeded(err):
		return ErrorResponse(w, http.StatusUnprocessableEntity, "propagation_depth_exceeded", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
