package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
)

// defaultSafetyOffsetSeconds is the pre/post roll applied around a window
// when none is configured.
const defaultSafetyOffsetSeconds = 30

// SafetyOffset is the pump roll margin in seconds around the valve window.
type SafetyOffset struct {
	Pre  int
	Post int
}

// DefaultSafetyOffset returns the standard 30/30 second margin.
func DefaultSafetyOffset() SafetyOffset {
	return SafetyOffset{Pre: defaultSafetyOffsetSeconds, Post: defaultSafetyOffsetSeconds}
}

// TransportPublisher publishes envelopes on the MQTT transport.
type TransportPublisher interface {
	PublishEnvelope(topic string, env mqtt.Envelope) error
}

// Logger is the minimal logging interface the service needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service drives the schedule lifecycle: validation, conflict detection,
// the pending-state transitions, and the hardware command publishes that
// accompany every transition.
type Service struct {
	repo      Repository
	catalog   device.Catalog
	transport TransportPublisher
	topics    mqtt.Topics
	offset    SafetyOffset
	logger    Logger
}

// NewService creates a schedule lifecycle service.
//
// Parameters:
//   - repo: schedule persistence
//   - catalog: device catalog for valve/pump resolution
//   - transport: MQTT publisher for hardware commands and broadcasts
//   - offset: pump roll margin; zero value means the default 30/30
//   - logger: logger instance (may be nil)
func NewService(repo Repository, catalog device.Catalog, transport TransportPublisher, offset SafetyOffset, logger Logger) *Service {
	if offset.Pre == 0 && offset.Post == 0 {
		offset = DefaultSafetyOffset()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		transport: transport,
		offset:    offset,
		logger:    logger,
	}
}

// CreateRequest is a request for a new schedule.
type CreateRequest struct {
	OrgID     string `json:"org_id"`
	BlockID   string `json:"block_id"`
	ValveID   string `json:"valve_id"`
	Days      []int  `json:"days"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	CreatedBy string `json:"created_by"`
}

// UpdateRequest modifies an existing schedule's window or recurrence.
type UpdateRequest struct {
	OrgID     string `json:"org_id"`
	ID        string `json:"id"`
	Days      []int  `json:"days"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Actor     string `json:"updated_by"`
}

// RequestCreate validates a new schedule, stores it in CREATING state and
// publishes the provisioning command to both hardware controllers.
//
// Returns *ConflictError (via errors.As) when the window overlaps existing
// schedules for the same valve.
func (s *Service) RequestCreate(ctx context.Context, req CreateRequest) (*Schedule, error) {
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	valve, err := s.resolveValve(ctx, req.OrgID, req.ValveID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByValve(ctx, req.OrgID, req.ValveID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules for valve %s: %w", req.ValveID, err)
	}

	conflicts, err := FindConflicts(existing, Window{
		BlockID: req.BlockID,
		ValveID: req.ValveID,
		Start:   req.StartTime,
		End:     req.EndTime,
	}, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, NewConflictError(conflicts)
	}

	pStart, err := addSeconds(req.StartTime, s.offset.Pre)
	if err != nil {
		return nil, err
	}

	sched := &Schedule{
		ID:         uuid.NewString(),
		OrgID:      req.OrgID,
		BlockID:    req.BlockID,
		ValveID:    req.ValveID,
		PumpID:     *valve.ParentID,
		Days:       req.Days,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		PStartTime: pStart,
		CreatedBy:  req.CreatedBy,
	}
	sched.beginPending(StatusCreating)

	if err := s.repo.Create(ctx, sched); err != nil {
		return nil, err
	}

	s.publishTransition(sched, mqtt.EventScheduleCreated)
	return sched, nil
}

// RequestUpdate re-validates and re-checks conflicts (excluding the record
// itself), moves the schedule to UPDATING and re-publishes to hardware.
func (s *Service) RequestUpdate(ctx context.Context, req UpdateRequest) (*Schedule, error) {
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	sched, err := s.repo.GetByID(ctx, req.OrgID, req.ID)
	if err != nil {
		return nil, err
	}

	// The valve's pump link may have changed since creation.
	valve, err := s.resolveValve(ctx, req.OrgID, sched.ValveID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByValve(ctx, req.OrgID, sched.ValveID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules for valve %s: %w", sched.ValveID, err)
	}

	conflicts, err := FindConflicts(existing, Window{
		BlockID: sched.BlockID,
		ValveID: sched.ValveID,
		Start:   req.StartTime,
		End:     req.EndTime,
	}, sched.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, NewConflictError(conflicts)
	}

	pStart, err := addSeconds(req.StartTime, s.offset.Pre)
	if err != nil {
		return nil, err
	}

	sched.Days = req.Days
	sched.StartTime = req.StartTime
	sched.EndTime = req.EndTime
	sched.PStartTime = pStart
	sched.PumpID = *valve.ParentID
	sched.beginPending(StatusUpdating)

	if err := s.repo.Update(ctx, sched); err != nil {
		return nil, err
	}

	s.publishTransition(sched, mqtt.EventScheduleUpdate)
	return sched, nil
}

// RequestDelete moves the schedule to DELETING and publishes the removal
// command to hardware. The record stays until both controllers acknowledge;
// only then is it removed.
func (s *Service) RequestDelete(ctx context.Context, orgID, id string) (*Schedule, error) {
	sched, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	sched.beginPending(StatusDeleting)
	if err := s.repo.Update(ctx, sched); err != nil {
		return nil, err
	}

	s.publishTransition(sched, mqtt.EventScheduleDelete)
	return sched, nil
}

// List returns all schedules in an org.
func (s *Service) List(ctx context.Context, orgID string) ([]Schedule, error) {
	return s.repo.ListByOrg(ctx, orgID)
}

// ActiveFor returns the schedules whose window covers the given instant for
// a valve. Consulted by the control engine before a manual-mode close.
func (s *Service) ActiveFor(ctx context.Context, orgID, blockID, valveID string, now time.Time) ([]Schedule, error) {
	schedules, err := s.repo.ListByValve(ctx, orgID, valveID)
	if err != nil {
		return nil, err
	}

	var active []Schedule
	for i := range schedules {
		if blockID != "" && schedules[i].BlockID != blockID {
			continue
		}
		if schedules[i].CoversInstant(now) {
			active = append(active, schedules[i])
		}
	}
	return active, nil
}

// resolveValve loads the target device and checks it is a valve wired to a
// pump. Runs before any conflict check.
func (s *Service) resolveValve(ctx context.Context, orgID, valveID string) (*device.Device, error) {
	valve, err := s.catalog.GetByID(ctx, orgID, valveID)
	if err != nil {
		return nil, err
	}
	if valve.Type != device.TypeValve {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotValve, valveID, valve.Type)
	}
	if !valve.HasParent() {
		return nil, fmt.Errorf("%w: %s", ErrValveNotConnected, valveID)
	}
	return valve, nil
}

// scheduleMessage is the payload published on schedule transitions: the
// schedule plus the acknowledge pair the hardware controllers must answer
// with.
type scheduleMessage struct {
	*Schedule
	Acknowledge Acknowledge `json:"acknowledge"`
}

// publishTransition sends the full schedule payload with a timestamp to the
// valve's and pump's hardware command topics, plus the block broadcast for
// dashboard subscribers. Publish failures are logged, not returned: the
// record is already committed in its pending state, and hardware that never
// hears the command simply never acks it.
func (s *Service) publishTransition(sched *Schedule, event mqtt.EventType) {
	env := mqtt.NewTimestampedEnvelope(event, scheduleMessage{
		Schedule:    sched,
		Acknowledge: sched.Acknowledge(),
	})

	targets := []string{
		s.topics.HardwareCommand(sched.OrgID, sched.BlockID, string(device.TypeValve), sched.ValveID),
		s.topics.HardwareCommand(sched.OrgID, sched.BlockID, string(device.TypePump), sched.PumpID),
		s.topics.BlockBroadcast(sched.OrgID, sched.BlockID),
	}
	for _, topic := range targets {
		if err := s.transport.PublishEnvelope(topic, env); err != nil {
			s.logger.Error("publishing schedule transition",
				"schedule_id", sched.ID, "event", string(event), "topic", topic, "error", err)
		}
	}
}

// validateWindow checks both times parse and end comes strictly after start.
func validateWindow(start, end string) error {
	startSec, err := timeToSeconds(start)
	if err != nil {
		return err
	}
	endSec, err := timeToSeconds(end)
	if err != nil {
		return err
	}
	if endSec <= startSec {
		return fmt.Errorf("%w: end %q must be after start %q", ErrInvalidWindow, end, start)
	}
	return nil
}
