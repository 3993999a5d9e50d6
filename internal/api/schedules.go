package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/schedule"
)

// handleCreateSchedule requests a new irrigation schedule.
//
// A window overlap comes back as 409 carrying the conflicting schedules
// and the resolution options the caller can choose from.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req schedule.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.ValveID == "" {
		writeBadRequest(w, "org_id and valve_id are required")
		return
	}

	sched, err := s.schedules.RequestCreate(r.Context(), req)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

// handleUpdateSchedule requests a window or recurrence change.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req schedule.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.ID == "" {
		writeBadRequest(w, "org_id and id are required")
		return
	}

	sched, err := s.schedules.RequestUpdate(r.Context(), req)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// deleteScheduleRequest identifies the schedule to remove.
type deleteScheduleRequest struct {
	OrgID string `json:"org_id"`
	ID    string `json:"id"`
}

// handleDeleteSchedule requests schedule removal. The record survives in
// DELETING state until both hardware controllers acknowledge.
func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	var req deleteScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.ID == "" {
		writeBadRequest(w, "org_id and id are required")
		return
	}

	sched, err := s.schedules.RequestDelete(r.Context(), req.OrgID, req.ID)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// handleListSchedules returns all schedules for an org.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	schedules, err := s.schedules.List(r.Context(), org)
	if err != nil {
		writeInternalError(w, "failed to list schedules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules, "count": len(schedules)})
}

// writeScheduleError maps schedule service errors onto HTTP responses.
func (s *Server) writeScheduleError(w http.ResponseWriter, err error) {
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":    http.StatusConflict,
			"code":      ErrCodeConflict,
			"message":   conflict.Error(),
			"schedules": conflict.Schedules,
			"options":   conflict.Options,
		})
	case errors.Is(err, schedule.ErrScheduleNotFound):
		writeNotFound(w, "schedule not found")
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, schedule.ErrNotValve),
		errors.Is(err, schedule.ErrValveNotConnected):
		writeBadRequest(w, err.Error())
	default:
		s.logger.Error("schedule request failed", "error", err)
		writeInternalError(w, "failed to process schedule request")
	}
}
