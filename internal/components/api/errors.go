// Package api implements the sidecar HTTP surface: the guarded fetch
// endpoint plus health and error envelope utilities.
package api

import (
	"encoding/json"
	"net/http"
)

// Deterministic reason codes for stable error classification. These
// should remain stable across versions for client compatibility.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonBadRequest      = "bad_request"
	ReasonMissingField    = "missing_field"

	// Fetch outcomes
	ReasonBlockedByPolicy = "blocked_by_policy"
	ReasonRedirectLimit   = "redirect_limit_exceeded"
	ReasonUpstreamError   = "upstream_error"

	ReasonInternalError = "internal_error"
)

// ErrorEnvelope is the standard error response format.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text
	ReasonCode string `json:"reason_code"` // deterministic reason code
	Message    string `json:"message"`     // human-readable message
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	envelope := ErrorEnvelope{
		Error: ErrorDetail{
			Code:       http.StatusText(statusCode),
			ReasonCode: reasonCode,
			Message:    message,
		},
	}

	json.NewEncoder(w).Encode(envelope)
}

// WriteUnauthorized writes a 401 Unauthorized error.
func WriteUnauthorized(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusUnauthorized, reasonCode, message)
}

// WriteBadRequest writes a 400 Bad Request error.
func WriteBadRequest(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusBadRequest, reasonCode, message)
}

// WriteForbidden writes a 403 Forbidden error.
func WriteForbidden(w http.ResponseWriter, reasonCode, message string) {
	WriteError(w, http.StatusForbidden, reasonCode, message)
}
