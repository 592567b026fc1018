// Package logging assembles structured slog loggers and formatting helpers used
// across vidredact services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with work order IDs, stages, and correlation IDs. Each work order also
// gets its own log file, teed from the daemon logger. A no-op logger is
// provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape and routing as the rest of the system.
package logging
