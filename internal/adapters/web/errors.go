package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"erp-ledger/internal/core"
	"erp-ledger/internal/logging"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps an error kind from the application layer to an
// HTTP status. Unclassified errors are logged and reported as 500 without
// their message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInconsistent):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrUnavailable):
		h.log.WithError(err).WithField("request_id", requestIDFromContext(r.Context())).Warn("dependency unavailable")
		writeError(w, r, "service temporarily unavailable", "UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		logging.LogError(h.log, "web", "writeServiceError", r.Method+" "+r.URL.Path,
			map[string]string{"request_id": requestIDFromContext(r.Context())}, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
