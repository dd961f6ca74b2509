package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Transport.JobEndpoint != "tcp://127.0.0.1:5555" {
		t.Fatalf("unexpected default job endpoint: %q", cfg.Transport.JobEndpoint)
	}
	if cfg.Workers.HeartbeatInterval != 30 || cfg.Workers.DeadInterval != 60 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Workers)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[transport]
job_endpoint = "tcp://127.0.0.1:7001"
result_endpoint = "tcp://127.0.0.1:7002"
control_endpoint = "tcp://127.0.0.1:7003"

[workers]
count = 4
model = "Mock"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("expected workers.count 4, got %d", cfg.Workers.Count)
	}
	if cfg.Workers.Model != "mock" {
		t.Fatalf("expected model normalized to mock, got %q", cfg.Workers.Model)
	}
	if cfg.Transport.JobEndpoint != "tcp://127.0.0.1:7001" {
		t.Fatalf("unexpected job endpoint: %q", cfg.Transport.JobEndpoint)
	}
}

func TestValidateRejectsSharedEndpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Transport.ResultEndpoint = cfg.Transport.JobEndpoint
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for duplicate endpoints")
	}
	if !strings.Contains(err.Error(), "must not share endpoint") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsShortDeadInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Workers.DeadInterval = cfg.Workers.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when dead interval does not exceed heartbeat interval")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Workers.Model != "mock" {
		t.Fatalf("unexpected model in sample: %q", cfg.Workers.Model)
	}
}
