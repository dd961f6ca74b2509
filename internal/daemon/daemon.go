package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scribe/internal/broker"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/monitor"
	"scribe/internal/protocol"
	"scribe/internal/queue"
	"scribe/internal/transcribe"
	"scribe/internal/worker"
)

// Daemon composes the job store, broker, worker pool, and monitor, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	monitor *monitor.Monitor
	broker  *broker.Broker
	pool    *worker.Pool
	results chan protocol.Result
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running       atomic.Bool
	cancelWorkers context.CancelFunc
	cancelRun     context.CancelFunc
	poolDone      chan struct{}
	brokerDone    chan struct{}
	monitorDone   chan struct{}
	fatal         chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool                    `json:"running"`
	PID           int                     `json:"pid"`
	QueueDBPath   string                  `json:"queue_db_path"`
	LockFilePath  string                  `json:"lock_file_path"`
	Queue         queue.Stats             `json:"queue"`
	Workers       []monitor.WorkerRecord  `json:"workers"`
	Incomplete    []monitor.IncompleteJob `json:"incomplete_jobs"`
	DroppedEvents uint64                  `json:"dropped_status_events"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	engine, err := transcribe.New(cfg)
	if err != nil {
		return nil, err
	}

	mon := monitor.New(cfg, logger)
	results := make(chan protocol.Result, cfg.Workers.StatusBuffer)
	pool := worker.NewPool(cfg, store, engine, results, mon.Submit, logger)
	br := broker.New(cfg, store, mon, results, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		monitor:  mon,
		broker:   br,
		pool:     pool,
		results:  results,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		fatal:    make(chan error, 1),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the instance lock, binds the transport, and launches the
// monitor, broker, and worker pool.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	recovered, err := d.store.Recover(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover queue: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("recovered persisted jobs", logging.Int("count", recovered))
	}

	if err := d.broker.Bind(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	d.cancelRun = cancelRun
	d.cancelWorkers = cancelWorkers

	d.monitorDone = make(chan struct{})
	go func() {
		defer close(d.monitorDone)
		d.monitor.Run(runCtx)
	}()

	d.brokerDone = make(chan struct{})
	go func() {
		defer close(d.brokerDone)
		if err := d.broker.Run(runCtx); err != nil {
			d.logger.Error("broker stopped unexpectedly", logging.Error(err))
		}
	}()

	d.poolDone = make(chan struct{})
	go func() {
		defer close(d.poolDone)
		if err := d.pool.Run(workerCtx); err != nil {
			select {
			case d.fatal <- err:
			default:
			}
		}
	}()

	if err := d.api.start(runCtx); err != nil {
		d.Stop()
		return err
	}

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.Int("workers", d.pool.Size()),
		logging.String("lock", d.lockPath))
	return nil
}

// APIAddr reports the status API's bound address, or empty when disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Fatal reports unrecoverable runtime failures, such as the job store
// becoming unusable. The daemon stays partially up; callers should stop it.
func (d *Daemon) Fatal() <-chan error {
	return d.fatal
}

// Stop winds the daemon down in dependency order: workers first so in-flight
// jobs finish and their results drain, then the broker and monitor.
func (d *Daemon) Stop() {
	if d.cancelWorkers != nil {
		d.cancelWorkers()
		d.cancelWorkers = nil
		<-d.poolDone
	}
	if d.results != nil {
		close(d.results)
		d.results = nil
	}
	if d.cancelRun != nil {
		d.cancelRun()
		d.cancelRun = nil
		<-d.brokerDone
		<-d.monitorDone
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	if d.running.Swap(false) {
		d.logger.Info("scribe daemon stopped")
	}
}

// Close stops the daemon and closes the job store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports current runtime state for the status API and CLI.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		QueueDBPath:   d.store.Path(),
		LockFilePath:  d.lockPath,
		Queue:         stats,
		Workers:       d.monitor.Snapshot(),
		Incomplete:    d.monitor.Incomplete(),
		DroppedEvents: d.monitor.Dropped(),
	}
}
