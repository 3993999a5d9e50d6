package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the schedule package.
var (
	// ErrScheduleNotFound is returned when a schedule does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrInvalidWindow is returned when start/end times are malformed or
	// end does not come strictly after start.
	ErrInvalidWindow = errors.New("schedule: invalid time window")

	// ErrValveNotConnected is returned when the target valve has no pump
	// parent. Raised before any conflict check runs.
	ErrValveNotConnected = errors.New("schedule: valve not connected to pump")

	// ErrNotValve is returned when the target device is not a valve.
	ErrNotValve = errors.New("schedule: device is not a valve")

	// ErrNotPending is returned when an acknowledgement arrives for a
	// schedule that is not awaiting one.
	ErrNotPending = errors.New("schedule: not awaiting acknowledgement")
)

// Resolution options the caller can act on when a conflict is reported.
// The core never resolves conflicts automatically.
const (
	ResolveDeleteExisting  = "delete_existing"
	ResolveShortenExisting = "shorten_existing"
	ResolveShortenNew      = "shorten_new"
)

// ConflictError reports the schedules overlapping a proposed window,
// together with the resolution options open to the caller.
type ConflictError struct {
	Schedules []Schedule
	Options   []string
}

// NewConflictError builds a ConflictError with the standard options.
func NewConflictError(conflicts []Schedule) *ConflictError {
	return &ConflictError{
		Schedules: conflicts,
		Options:   []string{ResolveDeleteExisting, ResolveShortenExisting, ResolveShortenNew},
	}
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Schedules))
	for i := range e.Schedules {
		ids[i] = e.Schedules[i].ID
	}
	return fmt.Sprintf("schedule: window overlaps %d existing schedule(s): %s",
		len(e.Schedules), strings.Join(ids, ", "))
}
