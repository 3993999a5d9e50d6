package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/audit"
)

// handleListAudit returns the audit trail for an org, newest first.
//
// Query parameters:
//   - device_id: filter by device
//   - event_type: filter by event type (DEVICE_UPDATE, ...)
//   - limit: page size (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	filter := audit.Filter{
		DeviceID:  r.URL.Query().Get("device_id"),
		EventType: r.URL.Query().Get("event_type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), org, filter)
	if err != nil {
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
