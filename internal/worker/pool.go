package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/protocol"
	"scribe/internal/queue"
	"scribe/internal/transcribe"
)

// Pool runs the configured number of workers against a shared store and
// engine. All workers publish results to one channel and status events
// through one emit function.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger
}

// NewPool builds the worker pool from configuration. Worker IDs embed the
// process-unique pool ID so restarts are distinguishable on the control plane.
func NewPool(cfg *config.Config, store *queue.Store, engine transcribe.Engine, results chan<- protocol.Result, emit EmitFunc, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	poolLogger := logging.NewComponentLogger(logger, "worker")

	count := cfg.Workers.Count
	if count <= 0 {
		count = 1
	}
	poolID := protocol.NewID().String()[:8]

	workers := make([]*Worker, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("worker-%s-%d", poolID, i+1)
		workers = append(workers, NewWorker(
			id,
			store,
			engine,
			results,
			emit,
			cfg.PollTimeout(),
			cfg.HeartbeatInterval(),
			poolLogger,
		))
	}

	return &Pool{workers: workers, logger: poolLogger}
}

// Size reports the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Run starts every worker and blocks until all of them have exited. The
// first store failure is returned after the remaining workers wind down.
func (p *Pool) Run(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(w)
	}

	wg.Wait()
	return firstErr
}
