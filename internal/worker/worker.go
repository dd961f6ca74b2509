package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scribe/internal/logging"
	"scribe/internal/protocol"
	"scribe/internal/queue"
	"scribe/internal/transcribe"
)

// EmitFunc delivers a status event to the control plane. It must not block;
// a false return means the event was dropped.
type EmitFunc func(protocol.StatusEvent) bool

// Worker drains the job store, runs inference, and publishes one result per
// job. Inference failures produce error results; the loop itself only stops
// on shutdown or a store failure.
type Worker struct {
	id                string
	store             *queue.Store
	engine            transcribe.Engine
	results           chan<- protocol.Result
	emit              EmitFunc
	pollTimeout       time.Duration
	heartbeatInterval time.Duration
	logger            *slog.Logger

	startedAt time.Time
	counters  counters
}

// counters tracks one worker's throughput. Owned by the worker goroutine;
// the heartbeat emitter reads it between jobs, never concurrently.
type counters struct {
	processed uint64
	failed    uint64
}

// NewWorker wires a single worker. The results channel is shared by the pool
// and drained by the broker's result publisher.
func NewWorker(id string, store *queue.Store, engine transcribe.Engine, results chan<- protocol.Result, emit EmitFunc, pollTimeout, heartbeatInterval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if emit == nil {
		emit = func(protocol.StatusEvent) bool { return false }
	}
	return &Worker{
		id:                id,
		store:             store,
		engine:            engine,
		results:           results,
		emit:              emit,
		pollTimeout:       pollTimeout,
		heartbeatInterval: heartbeatInterval,
		logger:            logger.With(logging.String("worker_id", id)),
	}
}

// Run executes the worker loop until ctx is canceled. A job already dequeued
// when shutdown begins is finished and its result delivered before the
// worker announces it is stopping.
func (w *Worker) Run(ctx context.Context) error {
	w.startedAt = time.Now()
	w.emit(protocol.NewStarted(w.id))
	w.logger.Info("worker started")
	lastHeartbeat := time.Now()

	defer func() {
		w.emit(protocol.NewStopping(w.id))
		w.logger.Info("worker stopping", logging.Uint64("processed", w.counters.processed))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.store.Dequeue(ctx, w.id, w.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.emit(protocol.NewWorkerError(w.id, err.Error()))
			w.logger.Error("job store unavailable", logging.Error(err))
			return err
		}
		if job == nil {
			if time.Since(lastHeartbeat) >= w.heartbeatInterval {
				w.emit(protocol.NewHeartbeat(w.id, w.counters.processed, uint64(time.Since(w.startedAt).Seconds())))
				lastHeartbeat = time.Now()
			}
			continue
		}

		w.process(job)
		lastHeartbeat = time.Now()
	}
}

// process handles one job end to end. Decode and inference failures become
// error results carrying the job's ID; they never abort the loop.
func (w *Worker) process(job *queue.Job) {
	w.emit(protocol.NewMessageReceived(w.id, job.ID))
	start := time.Now()

	result := w.transcribeJob(job, start)
	durationMs := uint64(time.Since(start).Milliseconds())

	w.results <- result
	w.counters.processed++
	_, success := result.Ok()
	if !success {
		w.counters.failed++
	}
	w.emit(protocol.NewMessageCompleted(w.id, job.ID, success, durationMs))
}

// transcribeJob runs inference over the job payload. In-flight work is
// always finished, so the engine gets a fresh context rather than the loop's.
func (w *Worker) transcribeJob(job *queue.Job, start time.Time) protocol.Result {
	chunk, err := protocol.DecodeChunk(job.Payload)
	if err != nil {
		w.logger.Warn("job payload does not decode",
			logging.String("job_id", job.ID.String()),
			logging.Error(err))
		return protocol.NewErr(&protocol.JobError{
			ID:       job.ID,
			Message:  err.Error(),
			Code:     protocol.ErrCodeDecode,
			WorkerID: w.id,
		})
	}

	outcome, err := w.engine.Transcribe(context.Background(), chunk)
	if err != nil {
		w.logger.Warn("inference failed",
			logging.String("job_id", job.ID.String()),
			logging.Error(err))
		return protocol.NewErr(&protocol.JobError{
			ID:       job.ID,
			Message:  err.Error(),
			Code:     protocol.ErrCodeProcessing,
			WorkerID: w.id,
		})
	}

	return protocol.NewOk(&protocol.Transcript{
		ID:         job.ID,
		Text:       outcome.Text,
		Confidence: outcome.Confidence,
		Timestamp:  protocol.Now(),
		Metadata: &protocol.TranscriptMetadata{
			Language:         outcome.Language,
			ProcessingTimeMs: uint64(time.Since(start).Milliseconds()),
			Model:            w.engine.Name(),
			WorkerID:         w.id,
		},
	})
}
