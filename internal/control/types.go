package control

import (
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/schedule"
)

// Command is an inbound device event: a manual status request, a telemetry
// level update, or both.
type Command struct {
	OrgID    string `json:"org_id"`
	DeviceID string `json:"device_id"`

	// RequestedStatus is ON/OFF for pumps and OPEN/CLOSE for valves.
	// Empty for pure telemetry events.
	RequestedStatus string `json:"status,omitempty"`

	// Level is a fill-percentage reading for sumps and tanks.
	Level *int `json:"current_level,omitempty"`

	// Actor identifies who or what issued the command.
	Actor string `json:"updated_by"`
}

// Code classifies a controller outcome.
type Code string

// Outcome codes. CodeOK and CodeNoOp are successes; the rest are business
// refusals that never mutate beyond what the Result reports.
const (
	CodeOK             Code = "OK"
	CodeNoOp           Code = "NO_OP"
	CodeDeviceNotFound Code = "DEVICE_NOT_FOUND"
	CodeSumpTooLow     Code = "SUMP_TOO_LOW"
	CodeLastValveMan   Code = "LAST_VALVE_MANUAL"
	CodePumpAlreadyOff Code = "PUMP_ALREADY_OFF"
	CodeScheduledLock  Code = "SCHEDULED_LOCK"
)

// Result is the outcome of handling one command. Business refusals are
// carried here with OK=false; infrastructure faults are returned as errors
// instead and never produce a Result.
type Result struct {
	OK      bool   `json:"ok"`
	Code    Code   `json:"code"`
	Message string `json:"message"`

	// Mutated reports whether any status write was committed while
	// handling the command. A refusal can still have Mutated=true when
	// an earlier step in the same command committed (a valve opens even
	// when its pump cannot start).
	Mutated bool `json:"mutated"`

	// Schedules carries the schedules blocking a manual valve close.
	Schedules []schedule.Schedule `json:"schedules,omitempty"`
}

func okResult(msg string) Result {
	return Result{OK: true, Code: CodeOK, Message: msg, Mutated: true}
}

func noOpResult(msg string) Result {
	return Result{OK: true, Code: CodeNoOp, Message: msg}
}

func refusedResult(code Code, msg string) Result {
	return Result{OK: false, Code: code, Message: msg}
}

// ThresholdPolicy resolves effective min/max level thresholds for a device.
// The device's own thresholds apply only when both are set and min < max;
// anything else falls back to the configured system defaults.
type ThresholdPolicy struct {
	DefaultMin int
	DefaultMax int
}

// Resolve returns the effective thresholds for a device.
func (p ThresholdPolicy) Resolve(d *device.Device) (minT, maxT int) {
	if d != nil && d.MinThreshold != nil && d.MaxThreshold != nil &&
		*d.MinThreshold < *d.MaxThreshold {
		return *d.MinThreshold, *d.MaxThreshold
	}
	return p.DefaultMin, p.DefaultMax
}
