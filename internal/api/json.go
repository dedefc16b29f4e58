package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/acadworld/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeStoreError maps an error kind to its HTTP status.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.KindOf(err) {
	case apperr.ErrInvalid:
		writeJSON(w, http.StatusBadRequest, errResponse{Error: message(err), Kind: "invalid"})
	case apperr.ErrNotFound:
		writeJSON(w, http.StatusNotFound, errResponse{Error: message(err), Kind: "not_found"})
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errResponse{Error: "store unavailable", Kind: "unavailable"})
	}
}

// message returns the caller-facing part of err.
func message(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		return ae.Err.Error()
	}
	return err.Error()
}
