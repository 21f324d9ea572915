package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eigerco/remitchain/internal/indexer"
	"github.com/eigerco/remitchain/internal/remittance"
	"github.com/eigerco/remitchain/internal/store"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrIndexerMissing = errors.New("indexer not enabled")
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps domain and storage errors to HTTP statuses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, remittance.ErrRemittanceNotFound),
		errors.Is(err, indexer.ErrViewNotFound),
		errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrIndexerMissing):
		return http.StatusNotImplemented, "not_implemented"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
