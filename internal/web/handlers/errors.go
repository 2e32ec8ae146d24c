package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorCode identifies a failure class in the API error envelope.
type ErrorCode int

const (
	CodeInvalidIP      ErrorCode = 1001
	CodeInvalidRequest ErrorCode = 1002
	CodeInternalError  ErrorCode = 1003
)

// DefaultMessage is the canonical text for a code, used when the handler has
// nothing more specific to say.
func (c ErrorCode) DefaultMessage() string {
	switch c {
	case CodeInvalidIP:
		return "Invalid IP address"
	case CodeInvalidRequest:
		return "Invalid request data"
	case CodeInternalError:
		return "Internal server error"
	default:
		return "Unknown error"
	}
}

// errorResponse is the envelope for all non-2xx API responses.
type errorResponse struct {
	Success bool      `json:"success"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Errors  any       `json:"errors,omitempty"`
}

// fieldErrors maps a request field to its validation messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, errs any) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Code:    code,
		Message: code.DefaultMessage(),
		Errors:  errs,
	})
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}
