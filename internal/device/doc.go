// Package device defines the water-infrastructure catalog: the
// sump/pump/valve/tank hierarchy, per-block operating modes, and the live
// status store.
//
// The catalog (SQLite) holds the static shape of an installation. The
// hierarchy is a forest: sumps at the roots, pumps fed by sumps (or by an
// external source, in which case the pump has no parent), valves always
// gated by a pump, and tanks filled by a pump or a valve.
//
// Live operational state (ON/OFF, OPEN/CLOSE, fill level) lives in Redis,
// one hash per (org, device). Status records are created lazily on the
// first mutation and updated field by field, so a level-only telemetry
// write never clobbers a status flag.
package device
