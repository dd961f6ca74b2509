package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	"scribe/internal/monitor"
	"scribe/internal/queue"
)

// statusPayload mirrors the daemon's /api/status response.
type statusPayload struct {
	Running       bool                    `json:"running"`
	PID           int                     `json:"pid"`
	QueueDBPath   string                  `json:"queue_db_path"`
	LockFilePath  string                  `json:"lock_file_path"`
	Queue         queue.Stats             `json:"queue"`
	Workers       []monitor.WorkerRecord  `json:"workers"`
	Incomplete    []monitor.IncompleteJob `json:"incomplete_jobs"`
	DroppedEvents uint64                  `json:"dropped_status_events"`
}

// workersPayload mirrors the daemon's /api/workers response.
type workersPayload struct {
	Workers       []monitor.WorkerRecord  `json:"workers"`
	Incomplete    []monitor.IncompleteJob `json:"incomplete_jobs"`
	DroppedEvents uint64                  `json:"dropped_status_events"`
}

// queuePayload mirrors the daemon's /api/queue response.
type queuePayload struct {
	Stats queue.Stats `json:"stats"`
	Jobs  []struct {
		JobID      string `json:"job_id"`
		Priority   int32  `json:"priority"`
		EnqueuedAt string `json:"enqueued_at"`
	} `json:"jobs"`
}

func fetchJSON(ctx context.Context, addr, path string, out any) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("status API address is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("connect to daemon at %s: connection refused; is scribed running?", addr)
		}
		return fmt.Errorf("query daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("daemon: %s", payload.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
