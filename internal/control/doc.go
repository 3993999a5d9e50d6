// Package control implements the device control engine: the per-type state
// machines that decide whether an inbound device event mutates status and
// how the mutation cascades through the hierarchy.
//
// An event enters through Engine.Handle, which loads the device and its live
// status, applies any telemetry level carried by the event, resolves the
// block's operating mode, and dispatches to the controller for the device's
// type:
//
//   - sump: threshold watchdog, stops child pumps when the source runs low
//   - pump: ON/OFF with a source-level guard on ON
//   - valve: OPEN/CLOSE with pump cascade in auto mode and last-valve and
//     schedule-lock protection on close
//   - tank: threshold mirror that drives its parent pump or valve in auto
//     mode
//
// Expected business refusals (low sump, last valve in manual mode, schedule
// lock) are Result values, never errors; only infrastructure faults
// propagate as errors. Committed mutations go through the StatusPublisher,
// which fans out to the status store, MQTT, the audit log, push alerts and
// level history.
//
// Valve-group decisions for one pump are serialised with a per-pump lock so
// two concurrent close requests cannot both observe each other's valve as
// still open.
package control
