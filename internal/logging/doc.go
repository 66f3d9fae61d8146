// Package logging assembles structured slog loggers and formatting helpers used
// across wordxl.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so controller and client code
// can tag log lines with job IDs and request correlation IDs. The package also
// provides a no-op logger for tests and a sampler that keeps progress polling
// from flooding the log.
package logging
