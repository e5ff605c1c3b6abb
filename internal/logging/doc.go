// Package logging builds the slog loggers shared by the daemon and CLI.
//
// It provides a console handler for interactive use, a JSON handler for
// machine consumption, and small helpers (component loggers, standardized
// attribute keys) so every package logs lock and document activity with
// the same field names.
package logging
