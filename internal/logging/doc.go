// Package logging assembles structured slog loggers and formatting helpers used
// across restronaut.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so watcher and workflow code can
// tag log lines with the watched directory, file, attempt, and correlation ID.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
