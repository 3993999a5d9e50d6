package schedule

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a schedule.
type Status string

// Lifecycle states. The pending states (CREATING, UPDATING, DELETING) are
// entered by requests and left only by hardware acknowledgement. DELETED is
// terminal and never stored: a completed delete removes the record.
const (
	StatusCreating Status = "CREATING"
	StatusCreated  Status = "CREATED"
	StatusUpdating Status = "UPDATING"
	StatusUpdated  Status = "UPDATED"
	StatusDeleting Status = "DELETING"
	StatusDeleted  Status = "DELETED"
)

// Acknowledge is the hardware pair a pending schedule waits on.
type Acknowledge struct {
	ValveID string `json:"valve_id"`
	PumpID  string `json:"pump_id"`
}

// Schedule is one recurring valve activation window.
// Times are time-of-day strings (HH:MM:SS), same-day only.
type Schedule struct {
	ID      string `json:"id"`
	OrgID   string `json:"org_id"`
	BlockID string `json:"block_id"`

	// ValveID is the valve the schedule drives; PumpID is its parent
	// pump, snapshotted at request time so acks can be matched even if
	// the hierarchy later changes.
	ValveID string `json:"valve_id"`
	PumpID  string `json:"pump_id"`

	// Days are weekday numbers (0 = Sunday) the window recurs on.
	// Empty means every day.
	Days []int `json:"days"`

	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	// PStartTime is the pump pre-roll start: StartTime plus the safety
	// offset, so the valve is already open when water arrives.
	PStartTime string `json:"p_start_time"`

	Status   Status `json:"schedule_status"`
	PumpAck  bool   `json:"pump_ack"`
	ValveAck bool   `json:"valve_ack"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Acknowledge returns the hardware pair this schedule waits on.
func (s *Schedule) Acknowledge() Acknowledge {
	return Acknowledge{ValveID: s.ValveID, PumpID: s.PumpID}
}

// Pending reports whether the schedule is awaiting hardware acknowledgement.
func (s *Schedule) Pending() bool {
	switch s.Status {
	case StatusCreating, StatusUpdating, StatusDeleting:
		return true
	default:
		return false
	}
}

// beginPending moves the schedule into a pending state with both acks
// cleared.
func (s *Schedule) beginPending(status Status) {
	s.Status = status
	s.PumpAck = false
	s.ValveAck = false
}

// AckFromPump records the pump controller's acknowledgement.
// Only honoured while the schedule is pending.
func (s *Schedule) AckFromPump() (completed bool, err error) {
	if !s.Pending() {
		return false, fmt.Errorf("%w: status %s", ErrNotPending, s.Status)
	}
	s.PumpAck = true
	return s.tryComplete(), nil
}

// AckFromValve records the valve controller's acknowledgement.
// Only honoured while the schedule is pending.
func (s *Schedule) AckFromValve() (completed bool, err error) {
	if !s.Pending() {
		return false, fmt.Errorf("%w: status %s", ErrNotPending, s.Status)
	}
	s.ValveAck = true
	return s.tryComplete(), nil
}

// tryComplete advances the pending state once both acks are in.
func (s *Schedule) tryComplete() bool {
	if !s.PumpAck || !s.ValveAck {
		return false
	}
	switch s.Status {
	case StatusCreating:
		s.Status = StatusCreated
	case StatusUpdating:
		s.Status = StatusUpdated
	case StatusDeleting:
		s.Status = StatusDeleted
	}
	return true
}

// CoversInstant reports whether the schedule's window covers the given
// time: the weekday recurs and the time of day sits inside
// [StartTime, EndTime] inclusive.
func (s *Schedule) CoversInstant(t time.Time) bool {
	if len(s.Days) > 0 {
		day := int(t.Weekday())
		found := false
		for _, d := range s.Days {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, err := timeToMinutes(s.StartTime)
	if err != nil {
		return false
	}
	end, err := timeToMinutes(s.EndTime)
	if err != nil {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	return now >= start && now <= end
}
