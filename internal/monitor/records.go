package monitor

import (
	"time"

	"scribe/internal/protocol"
)

// WorkerState describes the monitor's view of one worker.
type WorkerState string

const (
	StateIdle     WorkerState = "idle"
	StateBusy     WorkerState = "busy"
	StateDead     WorkerState = "dead"
	StateStopping WorkerState = "stopping"
)

// WorkerRecord is the tracked health and throughput of a single worker. Only
// the monitor loop mutates records; Snapshot returns copies.
type WorkerRecord struct {
	WorkerID     string      `json:"worker_id"`
	State        WorkerState `json:"state"`
	LastSeen     time.Time   `json:"last_seen"`
	StartedAt    time.Time   `json:"started_at"`
	Processed    uint64      `json:"processed"`
	Errors       uint64      `json:"errors"`
	CurrentJobID string      `json:"current_job_id,omitempty"`

	currentJob protocol.ID
	hasJob     bool
}

// IncompleteJob is a job that was handed to a worker which then went dead
// before reporting completion. The monitor surfaces these for operators; it
// never requeues them itself.
type IncompleteJob struct {
	WorkerID string      `json:"worker_id"`
	JobID    protocol.ID `json:"-"`
	JobIDStr string      `json:"job_id"`
	LastSeen time.Time   `json:"last_seen"`
}
