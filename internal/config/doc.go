// Package config loads, normalizes, and validates wordxl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// WORDXL_API_BASE and WORDXL_UPLOAD_PATH so the conversion endpoints can be
// retargeted without editing files. The Config type centralizes every knob the
// CLI needs, from service paths and polling cadence to the cached auth state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
