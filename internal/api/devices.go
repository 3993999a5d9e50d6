package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/control"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
)

// commandRequest is an inbound device event: a requested status change,
// a level report, or both on the same event.
type commandRequest struct {
	OrgID    string `json:"org_id"`
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	Level    *int   `json:"level"`
	Actor    string `json:"updated_by"`
}

// handleDeviceCommand routes a device event through the control engine.
//
// Business refusals come back as 409 with the engine's result code so the
// caller can distinguish a low sump from a schedule lock. Only
// infrastructure faults produce a 5xx.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrgID == "" || req.DeviceID == "" {
		writeBadRequest(w, "org_id and device_id are required")
		return
	}
	if req.Status == "" && req.Level == nil {
		writeBadRequest(w, "event carries neither status nor level")
		return
	}

	res, err := s.engine.Handle(r.Context(), control.Command{
		OrgID:           req.OrgID,
		DeviceID:        req.DeviceID,
		RequestedStatus: req.Status,
		Level:           req.Level,
		Actor:           req.Actor,
	})
	if err != nil {
		s.logger.Error("device command failed",
			"org_id", req.OrgID, "device_id", req.DeviceID, "error", err)
		writeInternalError(w, "failed to process device command")
		return
	}

	switch {
	case res.OK:
		writeJSON(w, http.StatusOK, res)
	case res.Code == control.CodeDeviceNotFound:
		writeJSON(w, http.StatusNotFound, res)
	default:
		writeJSON(w, http.StatusConflict, res)
	}
}

// handleGetDeviceStatus returns the live status record for a device.
func (s *Server) handleGetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	id := chi.URLParam(r, "id")

	if _, err := s.catalog.GetByID(r.Context(), org, id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	st, err := s.status.Get(r.Context(), org, id)
	if err != nil {
		writeInternalError(w, "failed to get device status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListDevices returns all devices for an org.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	devices, err := s.catalog.List(r.Context(), org)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	id := chi.URLParam(r, "id")

	dev, err := s.catalog.GetByID(r.Context(), org, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device after validating the hierarchy
// rules (pump under sump, valve under pump, tank under pump or valve).
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := dev.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.validateParentLink(r, &dev); err != nil {
		if errors.Is(err, device.ErrInvalidHierarchy) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to resolve parent device")
		return
	}

	if err := s.catalog.Create(r.Context(), &dev); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device already exists")
			return
		}
		writeInternalError(w, "failed to create device")
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	id := chi.URLParam(r, "id")

	existing, err := s.catalog.GetByID(r.Context(), org, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	// Decode the partial update onto the existing record. Identity fields
	// are pinned back afterwards so the body cannot move the device.
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id
	existing.OrgID = org

	if err := existing.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.validateParentLink(r, existing); err != nil {
		if errors.Is(err, device.ErrInvalidHierarchy) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to resolve parent device")
		return
	}

	if err := s.catalog.Update(r.Context(), existing); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to update device")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device from the catalog.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	id := chi.URLParam(r, "id")

	if err := s.catalog.Delete(r.Context(), org, id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// validateParentLink resolves the declared parent (when any) and applies
// the structural rules against its actual type.
func (s *Server) validateParentLink(r *http.Request, dev *device.Device) error {
	if !dev.HasParent() {
		return dev.ValidateParent(nil)
	}
	parent, err := s.catalog.GetByID(r.Context(), dev.OrgID, *dev.ParentID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return device.ErrInvalidHierarchy
		}
		return err
	}
	return dev.ValidateParent(parent)
}
