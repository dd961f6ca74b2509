package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-zeromq/zmq4"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/monitor"
	"scribe/internal/protocol"
	"scribe/internal/queue"
)

// Broker owns the three ZeroMQ channels: job ingress (PULL), result egress
// (PUSH), and control ingress (PULL). Clients connect to all three; the
// broker binds them.
type Broker struct {
	cfg     *config.Config
	store   *queue.Store
	monitor *monitor.Monitor
	results <-chan protocol.Result
	logger  *slog.Logger

	jobSock     zmq4.Socket
	resultSock  zmq4.Socket
	controlSock zmq4.Socket
}

// New wires the broker. The results channel is fed by the worker pool; the
// broker drains it until the channel is closed.
func New(cfg *config.Config, store *queue.Store, mon *monitor.Monitor, results <-chan protocol.Result, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broker{
		cfg:     cfg,
		store:   store,
		monitor: mon,
		results: results,
		logger:  logging.NewComponentLogger(logger, "broker"),
	}
}

// Bind opens all three sockets. Call before Run so endpoint conflicts fail
// startup instead of surfacing mid-flight.
func (b *Broker) Bind() error {
	b.jobSock = zmq4.NewPull(context.Background())
	if err := b.jobSock.Listen(b.cfg.Transport.JobEndpoint); err != nil {
		return fmt.Errorf("bind job endpoint %s: %w", b.cfg.Transport.JobEndpoint, err)
	}

	b.resultSock = zmq4.NewPush(context.Background())
	if err := b.resultSock.Listen(b.cfg.Transport.ResultEndpoint); err != nil {
		b.closeSockets()
		return fmt.Errorf("bind result endpoint %s: %w", b.cfg.Transport.ResultEndpoint, err)
	}

	b.controlSock = zmq4.NewPull(context.Background())
	if err := b.controlSock.Listen(b.cfg.Transport.ControlEndpoint); err != nil {
		b.closeSockets()
		return fmt.Errorf("bind control endpoint %s: %w", b.cfg.Transport.ControlEndpoint, err)
	}

	b.logger.Info("transport bound",
		logging.String("job_endpoint", b.cfg.Transport.JobEndpoint),
		logging.String("result_endpoint", b.cfg.Transport.ResultEndpoint),
		logging.String("control_endpoint", b.cfg.Transport.ControlEndpoint))
	return nil
}

// Run serves all three channels until ctx is canceled and the results
// channel is drained. Bind must have succeeded first.
func (b *Broker) Run(ctx context.Context) error {
	if b.jobSock == nil || b.resultSock == nil || b.controlSock == nil {
		return fmt.Errorf("broker is not bound")
	}

	// Closing the PULL sockets is what unblocks their Recv loops.
	go func() {
		<-ctx.Done()
		_ = b.jobSock.Close()
		_ = b.controlSock.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		b.serveJobs(ctx)
	}()
	go func() {
		defer wg.Done()
		b.serveControl(ctx)
	}()
	go func() {
		defer wg.Done()
		b.serveResults()
	}()

	wg.Wait()
	_ = b.resultSock.Close()
	return nil
}

// serveJobs accepts job envelopes and persists them. Malformed frames are
// logged and dropped; the submitting client is not notified.
func (b *Broker) serveJobs(ctx context.Context) {
	for {
		msg, err := b.jobSock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("job socket receive failed", logging.Error(err))
			return
		}
		if len(msg.Frames) == 0 {
			continue
		}

		env, err := protocol.DecodeEnvelope(msg.Frames[0])
		if err != nil {
			b.logger.Warn("dropping malformed job frame", logging.Error(err))
			continue
		}
		job, err := queue.FromEnvelope(env)
		if err != nil {
			b.logger.Warn("dropping unstorable job",
				logging.String("job_id", env.ID.String()),
				logging.Error(err))
			continue
		}
		if _, err := b.store.Enqueue(ctx, job); err != nil {
			b.logger.Error("enqueue failed",
				logging.String("job_id", env.ID.String()),
				logging.Error(err))
			continue
		}
		b.logger.Debug("job accepted",
			logging.String("job_id", env.ID.String()),
			logging.Int("priority", int(env.Priority)))
	}
}

// serveControl feeds worker status events to the monitor.
func (b *Broker) serveControl(ctx context.Context) {
	for {
		msg, err := b.controlSock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("control socket receive failed", logging.Error(err))
			return
		}
		if len(msg.Frames) == 0 {
			continue
		}

		ev, err := protocol.DecodeStatusEvent(msg.Frames[0])
		if err != nil {
			b.logger.Warn("dropping malformed status frame", logging.Error(err))
			continue
		}
		b.monitor.Submit(*ev)
	}
}

// serveResults publishes worker results until the channel closes. Encoding a
// result we built ourselves failing means a programming error; it is logged
// and the job's consumer simply never hears back.
func (b *Broker) serveResults() {
	for res := range b.results {
		raw, err := protocol.EncodeResult(res)
		if err != nil {
			b.logger.Error("result encode failed",
				logging.String("job_id", res.JobID().String()),
				logging.Error(err))
			continue
		}
		if err := b.resultSock.Send(zmq4.NewMsg(raw)); err != nil {
			b.logger.Error("result send failed",
				logging.String("job_id", res.JobID().String()),
				logging.Error(err))
		}
	}
}

func (b *Broker) closeSockets() {
	for _, sock := range []zmq4.Socket{b.jobSock, b.resultSock, b.controlSock} {
		if sock != nil {
			_ = sock.Close()
		}
	}
}
