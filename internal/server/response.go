package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/workmaster/internal/logging"
	"github.com/me/workmaster/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, r, http.StatusOK, model.Response{Data: data})
}

// respondList writes a page of results. A nil slice is sent as [].
func respondList[T any](w http.ResponseWriter, r *http.Request, items []T, pg *model.Pagination) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, r, http.StatusOK, model.Response{Data: items, Pagination: pg})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *model.APIError) {
	respondJSON(w, r, status, model.Response{Error: apiErr})
}

// respondJSON fills the envelope's request ID, timestamp and status and
// writes it.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp model.Response) {
	resp.RequestID = RequestIDFromContext(r.Context())
	resp.Timestamp = time.Now().UTC()
	resp.Status = "ok"
	if resp.Error != nil {
		resp.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.FromContext(r.Context()).Debug("write response", "error", err)
	}
}
