package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/take1/internal/apperr"
	"github.com/starford/take1/internal/revision"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeBody reads a JSON request body into v and validates it. On failure
// the 400 response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// writeError maps domain errors to status codes. Upstream failures of the
// completion service, including transport errors and timeouts, are 502.
func writeError(w http.ResponseWriter, op string, err error) {
	var statusErr *revision.StatusError
	var urlErr *url.Error
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("editor closed"))
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadGateway, errorBody(statusErr.Error()))
	case errors.Is(err, revision.ErrMalformedResponse):
		writeJSON(w, http.StatusBadGateway, errorBody("malformed completion response"))
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusBadGateway, errorBody("completion service timed out"))
	case errors.As(err, &urlErr):
		slog.Warn(op+" upstream unreachable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("completion service unreachable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
