package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/protocol"
)

// Monitor consumes worker status events and maintains per-worker health
// records. A worker that misses heartbeats for the configured dead interval
// is marked dead; any job it held is surfaced as incomplete.
type Monitor struct {
	logger       *slog.Logger
	events       chan protocol.StatusEvent
	deadInterval time.Duration
	sweepEvery   time.Duration
	dropped      atomic.Uint64

	mu         sync.RWMutex
	workers    map[string]*WorkerRecord
	incomplete []IncompleteJob

	now func() time.Time
}

// New builds a monitor sized by the configured status buffer.
func New(cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	buffer := cfg.Workers.StatusBuffer
	if buffer <= 0 {
		buffer = 256
	}
	dead := cfg.DeadInterval()
	sweep := dead / 4
	if sweep <= 0 {
		sweep = time.Second
	}
	return &Monitor{
		logger:       logging.NewComponentLogger(logger, "monitor"),
		events:       make(chan protocol.StatusEvent, buffer),
		deadInterval: dead,
		sweepEvery:   sweep,
		workers:      make(map[string]*WorkerRecord),
		now:          time.Now,
	}
}

// Submit offers a status event to the monitor without blocking. When the
// buffer is full the event is counted as dropped and discarded; health
// tracking degrades gracefully instead of stalling workers.
func (m *Monitor) Submit(ev protocol.StatusEvent) bool {
	select {
	case m.events <- ev:
		return true
	default:
		m.dropped.Add(1)
		return false
	}
}

// Dropped reports how many status events were discarded due to backpressure.
func (m *Monitor) Dropped() uint64 {
	return m.dropped.Load()
}

// Run consumes status events until the context is canceled. It is the only
// goroutine that mutates worker records.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.apply(ev)
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Monitor) apply(ev protocol.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec, ok := m.workers[ev.WorkerID]
	if !ok {
		rec = &WorkerRecord{WorkerID: ev.WorkerID, State: StateIdle, StartedAt: now}
		m.workers[ev.WorkerID] = rec
	}
	rec.LastSeen = now
	if rec.State == StateDead {
		m.logger.Info("worker resumed after being marked dead", logging.String("worker_id", ev.WorkerID))
		rec.State = StateIdle
	}

	switch ev.Status.Kind {
	case protocol.StatusStarted:
		rec.StartedAt = now
		rec.State = StateIdle
	case protocol.StatusMessageReceived:
		rec.State = StateBusy
		rec.currentJob = ev.Status.MessageID
		rec.hasJob = true
		rec.CurrentJobID = ev.Status.MessageID.String()
	case protocol.StatusMessageCompleted:
		rec.State = StateIdle
		rec.Processed++
		if !ev.Status.Success {
			rec.Errors++
		}
		rec.hasJob = false
		rec.CurrentJobID = ""
		m.retractIncomplete(ev.WorkerID, ev.Status.MessageID)
	case protocol.StatusHeartbeat:
		if rec.State != StateBusy {
			rec.State = StateIdle
		}
		if ev.Status.MessagesProcessed > rec.Processed {
			rec.Processed = ev.Status.MessagesProcessed
		}
	case protocol.StatusError:
		rec.Errors++
		m.logger.Warn("worker reported error",
			logging.String("worker_id", ev.WorkerID),
			logging.String("message", ev.Status.Message))
	case protocol.StatusStopping:
		if rec.hasJob {
			m.recordIncomplete(rec)
		}
		delete(m.workers, ev.WorkerID)
		m.logger.Info("worker retired", logging.String("worker_id", ev.WorkerID))
	}
}

// sweep marks workers dead when their last event is older than the dead
// interval and surfaces any job they were holding.
func (m *Monitor) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.deadInterval)
	for id, rec := range m.workers {
		if rec.State == StateDead || !rec.LastSeen.Before(cutoff) {
			continue
		}
		rec.State = StateDead
		m.logger.Warn("worker marked dead",
			logging.String("worker_id", id),
			logging.String("last_seen", rec.LastSeen.UTC().Format(time.RFC3339)))
		if rec.hasJob {
			m.recordIncomplete(rec)
			rec.hasJob = false
			rec.CurrentJobID = ""
		}
	}
}

func (m *Monitor) recordIncomplete(rec *WorkerRecord) {
	m.incomplete = append(m.incomplete, IncompleteJob{
		WorkerID: rec.WorkerID,
		JobID:    rec.currentJob,
		JobIDStr: rec.currentJob.String(),
		LastSeen: rec.LastSeen,
	})
	m.logger.Warn("job in flight on unavailable worker",
		logging.String("worker_id", rec.WorkerID),
		logging.String("job_id", rec.currentJob.String()))
}

// retractIncomplete drops surfaced entries for a job the worker went on to
// finish. A worker that was presumed dead but was merely slow would otherwise
// leave a completed job listed as a resubmission candidate.
func (m *Monitor) retractIncomplete(workerID string, jobID protocol.ID) {
	kept := m.incomplete[:0]
	for _, entry := range m.incomplete {
		if entry.WorkerID == workerID && entry.JobID == jobID {
			m.logger.Info("incomplete job retracted after late completion",
				logging.String("worker_id", workerID),
				logging.String("job_id", jobID.String()))
			continue
		}
		kept = append(kept, entry)
	}
	m.incomplete = kept
}

// Snapshot returns copies of all worker records.
func (m *Monitor) Snapshot() []WorkerRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]WorkerRecord, 0, len(m.workers))
	for _, rec := range m.workers {
		out = append(out, *rec)
	}
	return out
}

// Incomplete returns the jobs stranded on dead or retired workers. These are
// candidates for the operator to resubmit; nothing is requeued automatically.
func (m *Monitor) Incomplete() []IncompleteJob {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]IncompleteJob, len(m.incomplete))
	copy(out, m.incomplete)
	return out
}
