package testsupport

import (
	"log/slog"
	"testing"

	"scribe/internal/logging"
)

// NewLogger returns a logger for tests. Output is discarded; daemons and
// workers under test stay quiet unless a test installs its own handler.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return logging.NewNop()
}
