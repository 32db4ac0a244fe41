package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyhall/progress-ledger/internal/ledger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeLedgerError maps ledger error kinds onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidScore):
		writeError(w, http.StatusUnprocessableEntity, "invalid_score", err.Error())
	case errors.Is(err, ledger.ErrInvalidAnswers):
		writeError(w, http.StatusUnprocessableEntity, "invalid_answers", err.Error())
	case errors.Is(err, ledger.ErrUnknownActivity):
		writeError(w, http.StatusNotFound, "unknown_activity", err.Error())
	case errors.Is(err, ledger.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "unknown_user", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrConflict):
		// Retries are already exhausted by the time this surfaces.
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ledger.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage temporarily unavailable")
	default:
		slog.Error("unhandled ledger error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
