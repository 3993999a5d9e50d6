package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device does not exist in the catalog.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrBlockNotFound is returned when a block does not exist.
	ErrBlockNotFound = errors.New("device: block not found")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidMode is returned when a mode value is not recognised.
	ErrInvalidMode = errors.New("device: invalid mode")

	// ErrInvalidHierarchy is returned when a parent reference breaks the
	// sump/pump/valve/tank forest rules.
	ErrInvalidHierarchy = errors.New("device: invalid hierarchy")

	// ErrInvalidThresholds is returned when thresholds are out of range or
	// min is not below max.
	ErrInvalidThresholds = errors.New("device: invalid thresholds")

	// ErrInvalidName is returned when a device name is empty.
	ErrInvalidName = errors.New("device: invalid name")
)
