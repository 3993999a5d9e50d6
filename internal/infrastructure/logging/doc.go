// Package logging provides structured logging for the Flostat core.
//
// It wraps log/slog with service defaults (service name, version) and
// config-driven level and format selection. All output is structured
// key-value logging; JSON in production, text for development.
package logging
