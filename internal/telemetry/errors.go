package telemetry

import "errors"

// Errors for the telemetry package.
var (
	// ErrDisabled is returned when level history is disabled in configuration.
	ErrDisabled = errors.New("telemetry: influxdb is disabled")

	// ErrConnectionFailed is returned when the InfluxDB connection cannot be established.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrNotConnected is returned when an operation requires an active connection.
	ErrNotConnected = errors.New("telemetry: not connected")
)
