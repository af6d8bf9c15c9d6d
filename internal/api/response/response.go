// Package response writes the API's JSON envelopes: {"data": ...} on success
// and {"error": {"code", "message", "details"}} on failure.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/oracle"
)

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data any      `json:"data"`
	Meta ListMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ListMeta struct {
	Total int `json:"total"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Collection(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: ListMeta{Total: total}})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// FromError maps a service error onto the error taxonomy. Anything not
// recognised is logged and reported as a 500 without leaking its text.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		Error(w, http.StatusNotFound, "NOT_FOUND", apperr.Message(err), nil)
	case errors.Is(err, apperr.ErrRuleViolation):
		Error(w, http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION", apperr.Message(err), nil)
	case errors.Is(err, apperr.ErrConflict):
		Error(w, http.StatusConflict, "CONFLICT", apperr.Message(err), nil)
	case errors.Is(err, oracle.ErrInferenceTimeout):
		Error(w, http.StatusGatewayTimeout, "ORACLE_TIMEOUT",
			"The scoring oracle took too long and was cancelled", nil)
	case errors.Is(err, oracle.ErrProviderUnavailable):
		Error(w, http.StatusBadGateway, "ORACLE_UNAVAILABLE",
			"The scoring oracle is not available", nil)
	case errors.Is(err, oracle.ErrInvalidResponse):
		Error(w, http.StatusBadGateway, "ORACLE_INVALID_RESPONSE",
			"The scoring oracle returned an unusable answer", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
