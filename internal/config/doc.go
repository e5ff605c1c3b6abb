// Package config loads, normalizes, and validates PoppoBuilder configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: the shared state directory, lock timing, task
// retention, the audit schedule, and log output settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
