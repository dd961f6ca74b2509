package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTransport() error {
	endpoints := map[string]string{
		"transport.job_endpoint":     c.Transport.JobEndpoint,
		"transport.result_endpoint":  c.Transport.ResultEndpoint,
		"transport.control_endpoint": c.Transport.ControlEndpoint,
	}
	seen := make(map[string]string, len(endpoints))
	for name, endpoint := range endpoints {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed == "" {
			return fmt.Errorf("%s must be set", name)
		}
		if !strings.Contains(trimmed, "://") {
			return fmt.Errorf("%s must include a transport scheme (e.g. tcp://127.0.0.1:5555)", name)
		}
		if other, dup := seen[trimmed]; dup {
			return fmt.Errorf("%s and %s must not share endpoint %q", name, other, trimmed)
		}
		seen[trimmed] = name
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count < 1 {
		return errors.New("workers.count must be at least 1")
	}
	if err := ensurePositiveMap(map[string]int{
		"workers.poll_timeout":       c.Workers.PollTimeout,
		"workers.heartbeat_interval": c.Workers.HeartbeatInterval,
		"workers.dead_interval":      c.Workers.DeadInterval,
		"workers.status_buffer":      c.Workers.StatusBuffer,
	}); err != nil {
		return err
	}
	if c.Workers.DeadInterval <= c.Workers.HeartbeatInterval {
		return errors.New("workers.dead_interval must exceed workers.heartbeat_interval")
	}
	if strings.TrimSpace(c.Workers.Model) == "" {
		return errors.New("workers.model must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
