// Package logging builds the slog loggers used across the daemon and CLI and
// provides shared attribute helpers.
package logging
