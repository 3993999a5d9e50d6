package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Post("/command", s.handleDeviceCommand)
			r.Post("/", s.handleCreateDevice)
			r.Get("/{org}", s.handleListDevices)

			r.Route("/{org}/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/status", s.handleGetDeviceStatus)
			})
		})

		// Block endpoints
		r.Route("/blocks", func(r chi.Router) {
			r.Post("/", s.handleCreateBlock)
			r.Get("/{org}", s.handleListBlocks)
			r.Put("/mode", s.handleBlockMode)
			r.Put("/thresholds", s.handleBlockThresholds)
		})

		// Schedule endpoints
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", s.handleCreateSchedule)
			r.Put("/", s.handleUpdateSchedule)
			r.Delete("/", s.handleDeleteSchedule)
			r.Get("/{org}", s.handleListSchedules)
		})

		// Audit trail
		r.Get("/audit/{org}", s.handleListAudit)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
