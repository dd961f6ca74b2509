package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-zeromq/zmq4"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/protocol"
	"scribe/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func dialSocket(t *testing.T, newSocket func(context.Context, ...zmq4.Option) zmq4.Socket, endpoint string) zmq4.Socket {
	t.Helper()

	sock := newSocket(context.Background())
	if err := sock.Dial(endpoint); err != nil {
		t.Fatalf("dial %s: %v", endpoint, err)
	}
	t.Cleanup(func() { sock.Close() })
	return sock
}

func TestDaemonTranscribesEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	pull := dialSocket(t, zmq4.NewPull, cfg.Transport.ResultEndpoint)
	push := dialSocket(t, zmq4.NewPush, cfg.Transport.JobEndpoint)

	chunk := testsupport.NewChunk(t, 16000, 1)
	env := protocol.NewJobEnvelope(chunk, 0)
	raw, err := protocol.EncodeEnvelope(&env)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	if err := push.Send(zmq4.NewMsg(raw)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := pull.Recv()
	if err != nil {
		t.Fatalf("Recv result: %v", err)
	}
	res, err := protocol.DecodeResult(msg.Frames[0])
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	transcript, ok := res.Ok()
	if !ok {
		jobErr, _ := res.Err()
		t.Fatalf("expected transcript, got %+v", jobErr)
	}
	if transcript.ID != env.ID {
		t.Fatalf("result id %s, want %s", transcript.ID, env.ID)
	}
	if transcript.Metadata == nil || transcript.Metadata.Model != "mock" {
		t.Fatalf("unexpected metadata %+v", transcript.Metadata)
	}
}

func TestDaemonDispatchesUrgentJobFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// Queue both jobs before any worker is running so dispatch order is
	// decided purely by priority.
	chunk := testsupport.NewChunk(t, 16000, 1)
	background := testsupport.EnqueueJob(t, store, chunk, 5)
	urgent := testsupport.EnqueueJob(t, store, chunk, 0)

	d, err := daemon.New(cfg, store, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	pull := dialSocket(t, zmq4.NewPull, cfg.Transport.ResultEndpoint)

	first, err := pull.Recv()
	if err != nil {
		t.Fatalf("Recv first result: %v", err)
	}
	res, err := protocol.DecodeResult(first.Frames[0])
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if got := res.JobID(); got != urgent.ID {
		t.Fatalf("first result for job %s, want urgent job %s", got, urgent.ID)
	}

	second, err := pull.Recv()
	if err != nil {
		t.Fatalf("Recv second result: %v", err)
	}
	res, err = protocol.DecodeResult(second.Frames[0])
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if got := res.JobID(); got != background.ID {
		t.Fatalf("second result for job %s, want background job %s", got, background.ID)
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	second, err := daemon.New(cfg, store, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestStatusAPIReportsWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workers.Count = 2
	d := startDaemon(t, cfg)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("api server not listening")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(fmt.Sprintf("http://%s/api/status", addr))
		if err != nil {
			t.Fatalf("GET /api/status: %v", err)
		}
		var status daemon.Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			resp.Body.Close()
			t.Fatalf("decode status: %v", err)
		}
		resp.Body.Close()

		if !status.Running {
			t.Fatal("status reports not running")
		}
		if len(status.Workers) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers never registered, status %+v", status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStatusBeforeStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chunk := testsupport.NewChunk(t, 16000, 1)
	testsupport.EnqueueJob(t, store, chunk, 4)

	d, err := daemon.New(cfg, store, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	status := d.Status(context.Background())
	if status.Queue.Depth != 1 {
		t.Fatalf("queue depth %d, want 1", status.Queue.Depth)
	}
	if status.Running {
		t.Fatal("daemon reports running before Start")
	}
}
