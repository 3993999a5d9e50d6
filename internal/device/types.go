package device

import (
	"fmt"
	"time"
)

// DeviceType classifies a device within the water hierarchy.
type DeviceType string

// Device types.
const (
	TypeSump  DeviceType = "sump"
	TypePump  DeviceType = "pump"
	TypeValve DeviceType = "valve"
	TypeTank  DeviceType = "tank"
)

// ParseDeviceType converts a string to a DeviceType.
// Returns ErrInvalidDeviceType for unrecognised values.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case TypeSump, TypePump, TypeValve, TypeTank:
		return DeviceType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceType, s)
	}
}

// HasLevel reports whether this device type carries a fill level
// (sumps and tanks do; pumps and valves carry a status flag instead).
func (t DeviceType) HasLevel() bool {
	return t == TypeSump || t == TypeTank
}

// Mode is the block-level operating mode.
// Automation cascades only run in auto mode; everything else is manual.
type Mode string

// Operating modes.
const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ParseMode converts a string to a Mode.
// Returns ErrInvalidMode for unrecognised values.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeManual:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Status flag values. Pumps carry ON/OFF, valves carry OPEN/CLOSE.
// Tanks and sumps have no status flag, only a level.
const (
	StatusOn    = "ON"
	StatusOff   = "OFF"
	StatusOpen  = "OPEN"
	StatusClose = "CLOSE"
)

// BlockNone is the block sentinel for devices that belong to no block.
// Sumps always carry it; status writes for sumps force it.
const BlockNone = "none"

// Device is a catalog record: one node in the installation hierarchy.
// This matches the devices table in the initial schema migration.
type Device struct {
	// Identity
	ID    string `json:"id"`
	OrgID string `json:"org_id"`
	Name  string `json:"name"`

	// Hierarchy
	Type     DeviceType `json:"type"`
	ParentID *string    `json:"parent_id,omitempty"`
	BlockID  string     `json:"block_id"`

	// Level thresholds (percentages). Used only when both are set and
	// min < max; otherwise the system defaults apply.
	MinThreshold *int `json:"min_threshold,omitempty"`
	MaxThreshold *int `json:"max_threshold,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasParent reports whether the device references a parent.
func (d *Device) HasParent() bool {
	return d.ParentID != nil && *d.ParentID != ""
}

// Block groups devices that share an operating mode.
type Block struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Mode      Mode      `json:"mode"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeviceStatus is the live operational record for one device, stored as a
// Redis hash keyed by (org, device). A zero-value record (empty status, nil
// level) means nothing has been written yet; records are created lazily on
// the first mutation.
type DeviceStatus struct {
	OrgID    string `json:"org_id"`
	DeviceID string `json:"device_id"`

	// Status is ON/OFF for pumps, OPEN/CLOSE for valves, empty for
	// tanks and sumps.
	Status string `json:"status,omitempty"`

	// Level is the current fill percentage for tanks and sumps.
	Level *int `json:"current_level,omitempty"`

	UpdatedBy   string    `json:"updated_by,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// StatusUpdate is a partial write to a DeviceStatus. Only non-nil fields
// are applied; existing fields are preserved.
type StatusUpdate struct {
	Status    *string
	Level     *int
	UpdatedBy string
}
