package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/schedule"
)

// Publisher commits a status mutation and fans it out to the transport,
// audit log, alerting and level history. Implemented by StatusPublisher;
// abstracted here so controllers can be tested against a recorder.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*device.DeviceStatus, error)
}

// PublishRequest is one status mutation: whichever of Status/Level are
// non-nil get written.
type PublishRequest struct {
	Device *device.Device
	Status *string
	Level  *int
	Actor  string
}

// ScheduleGuard reports the schedules whose window covers the given instant
// for a valve. Consulted before a manual-mode close is allowed.
type ScheduleGuard interface {
	ActiveFor(ctx context.Context, orgID, blockID, valveID string, now time.Time) ([]schedule.Schedule, error)
}

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine dispatches device events to the per-type controllers.
//
// Thread Safety: Handle is safe for concurrent use. Valve-group decisions
// for a single pump are serialised internally.
type Engine struct {
	catalog    device.Catalog
	status     device.StatusStore
	modes      *ModeResolver
	publisher  Publisher
	schedules  ScheduleGuard
	thresholds ThresholdPolicy
	logger     Logger

	// pumpLocks serialises open/close decisions across the valve group
	// of one pump, keyed by org/pump id.
	pumpLocks keyedMutex
}

// NewEngine creates a control engine.
//
// Parameters:
//   - catalog: device catalog for hierarchy lookups
//   - status: live status store
//   - modes: block mode resolver
//   - publisher: status mutation sink (StatusPublisher in production)
//   - schedules: schedule guard for manual valve closes (may be nil; closes
//     are then never schedule-locked)
//   - thresholds: injected default thresholds
//   - logger: logger instance (may be nil)
func NewEngine(
	catalog device.Catalog,
	status device.StatusStore,
	modes *ModeResolver,
	publisher Publisher,
	schedules ScheduleGuard,
	thresholds ThresholdPolicy,
	logger Logger,
) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		catalog:    catalog,
		status:     status,
		modes:      modes,
		publisher:  publisher,
		schedules:  schedules,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Handle processes one inbound device event.
//
// Returns a Result for every expected outcome, including business refusals.
// An error return means an infrastructure fault; no Result is produced and
// no mutation was attempted after the fault.
func (e *Engine) Handle(ctx context.Context, cmd Command) (Result, error) {
	d, err := e.catalog.GetByID(ctx, cmd.OrgID, cmd.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return refusedResult(CodeDeviceNotFound,
				fmt.Sprintf("device %s not found", cmd.DeviceID)), nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	st, err := e.status.Get(ctx, cmd.OrgID, cmd.DeviceID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Telemetry events carry a level: commit it before any control
	// decision so the decision sees the fresh reading.
	levelWritten := false
	if cmd.Level != nil {
		st, err = e.publisher.Publish(ctx, PublishRequest{
			Device: d,
			Level:  cmd.Level,
			Actor:  cmd.Actor,
		})
		if err != nil {
			return Result{}, err
		}
		levelWritten = true
	}

	mode, err := e.modes.Resolve(ctx, d)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch d.Type {
	case device.TypeSump:
		res, err = e.handleSump(ctx, d, st, cmd.Actor)
	case device.TypePump:
		res, err = e.handlePump(ctx, d, st, cmd.RequestedStatus, cmd.Actor)
	case device.TypeValve:
		res, err = e.handleValve(ctx, d, st, mode, cmd.RequestedStatus, cmd.Actor)
	case device.TypeTank:
		res, err = e.handleTank(ctx, d, st, mode, cmd.Actor)
	default:
		return Result{}, fmt.Errorf("%w: %q", device.ErrInvalidDeviceType, d.Type)
	}
	if err != nil {
		return Result{}, err
	}

	if levelWritten {
		res.Mutated = true
	}
	return res, nil
}

// deviceLevel reads the live level for a device, returning (0, false) when
// no level has ever been recorded.
func (e *Engine) deviceLevel(ctx context.Context, orgID, deviceID string) (int, bool, error) {
	st, err := e.status.Get(ctx, orgID, deviceID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if st.Level == nil {
		return 0, false, nil
	}
	return *st.Level, true, nil
}

// keyedMutex provides one mutex per string key. Mutexes are created on
// first use and never removed; the key space (pumps per org) is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l
}

func pumpLockKey(orgID, pumpID string) string {
	return orgID + "/" + pumpID
}
