// Package httputil centralizes JSON response writing and domain error
// translation so every handler and middleware produces the same envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "eventgate/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors omit the description so infrastructure details never reach
// probing clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if msg := dErrors.MessageOf(err); msg != "" {
		body["error_description"] = msg
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// ToHTTPStatus maps a domain error code onto an HTTP status code.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
