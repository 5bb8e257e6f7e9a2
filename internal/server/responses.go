package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/backlog/internal/services"
	"github.com/desertthunder/backlog/internal/shared"
)

type successResponse struct {
	Data any   `json:"data"`
	Meta *meta `json:"meta,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
	Meta  *meta     `json:"meta,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	RequestID string `json:"request_id,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

func requestMeta(r *http.Request) *meta {
	if id := RequestIDFrom(r.Context()); id != "" {
		return &meta{RequestID: id}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, successResponse{Data: data, Meta: requestMeta(r)})
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}, Meta: requestMeta(r)})
}

// errorStatus maps a domain error to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrDuplicateEntry):
		return http.StatusConflict, "duplicate_entry"
	case errors.Is(err, shared.ErrUpstreamAuth):
		return http.StatusBadGateway, "upstream_auth"
	case errors.Is(err, shared.ErrMalformedUpstreamData):
		return http.StatusBadGateway, "malformed_upstream_data"
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "an internal error occurred"
	}
	if status == http.StatusServiceUnavailable && services.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeErrorCode(w, r, status, code, message)
}
