package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Transport endpoints use ipc sockets so tests never touch TCP ports.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Transport.JobEndpoint = "ipc://" + filepath.Join(base, "jobs.sock")
	cfgVal.Transport.ResultEndpoint = "ipc://" + filepath.Join(base, "results.sock")
	cfgVal.Transport.ControlEndpoint = "ipc://" + filepath.Join(base, "control.sock")
	cfgVal.Workers.Count = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerCount overrides the worker pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Count = count
	}
}

// WithModel overrides the inference model on the test config.
func WithModel(model string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Model = model
	}
}

// WithHeartbeat overrides heartbeat and dead-worker intervals (in seconds).
func WithHeartbeat(heartbeatSeconds, deadSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.HeartbeatInterval = heartbeatSeconds
		b.cfg.Workers.DeadInterval = deadSeconds
	}
}
