package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/audit"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/control"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/config"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/logging"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// TransportPublisher publishes envelopes on the MQTT transport.
// Block-level operations broadcast their outcome to dashboard subscribers.
type TransportPublisher interface {
	PublishEnvelope(topic string, env mqtt.Envelope) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.ServerConfig
	Logger    *logging.Logger
	Engine    *control.Engine
	Status    device.StatusStore
	Catalog   device.Catalog
	Blocks    device.Blocks
	Schedules *schedule.Service
	Audit     audit.Repository
	Transport TransportPublisher
	Version   string
}

// Server is the HTTP API server for the Flostat core service.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.ServerConfig
	logger    *logging.Logger
	engine    *control.Engine
	status    device.StatusStore
	catalog   device.Catalog
	blocks    device.Blocks
	schedules *schedule.Service
	audit     audit.Repository
	transport TransportPublisher
	topics    mqtt.Topics
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, engine, stores)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("control engine is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("device catalog is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status store is required")
	}
	// Transport is optional; block broadcasts are then skipped.

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		engine:    deps.Engine,
		status:    deps.Status,
		catalog:   deps.Catalog,
		blocks:    deps.Blocks,
		schedules: deps.Schedules,
		audit:     deps.Audit,
		transport: deps.Transport,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server is stopped
// with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
