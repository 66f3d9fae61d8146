// Package services defines shared utilities consumed by the conversion and
// authentication clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and correlation identifiers for
//     logging and request tracing.
//   - Structured error markers plus the Wrap helper so callers can tell
//     transport failures from remote rejections and local validation errors.
//
// Use these helpers when adding new remote calls so error reporting and log
// correlation stay uniform across commands.
package services
