package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockdash/internal/market"
	"stockdash/internal/provider"
)

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}

// resultStatus maps a non-OK fetch result to an HTTP status.
func resultStatus[T any](r market.Result[T]) int {
	switch {
	case r.Status == market.StatusEmpty:
		return http.StatusNotFound
	case errors.Is(r.Err, provider.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(r.Err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(r.Err, provider.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}
