package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scribe/internal/protocol"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
	"scribe/internal/transcribe"
	"scribe/internal/worker"
)

type statusLog struct {
	mu     sync.Mutex
	events []protocol.StatusEvent
}

func (l *statusLog) emit(ev protocol.StatusEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return true
}

func (l *statusLog) kinds() []protocol.StatusKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.StatusKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Status.Kind)
	}
	return out
}

func (l *statusLog) last(kind protocol.StatusKind) (protocol.StatusEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Status.Kind == kind {
			return l.events[i], true
		}
	}
	return protocol.StatusEvent{}, false
}

type failingEngine struct{ err error }

func (e *failingEngine) Name() string { return "failing" }

func (e *failingEngine) Transcribe(context.Context, *protocol.AudioChunk) (*transcribe.Outcome, error) {
	return nil, e.err
}

func runWorker(t *testing.T, store *queue.Store, engine transcribe.Engine, log *statusLog, results chan protocol.Result) (cancel func()) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	w := worker.NewWorker("w-test-1", store, engine, results, log.emit, 50*time.Millisecond, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			t.Errorf("worker.Run: %v", err)
		}
	}()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancelCtx()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}

func waitResult(t *testing.T, results chan protocol.Result) protocol.Result {
	t.Helper()

	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return protocol.Result{}
	}
}

func TestWorkerProducesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chunk := testsupport.NewChunk(t, 16000, 1)
	job := testsupport.EnqueueJob(t, store, chunk, 0)

	log := &statusLog{}
	results := make(chan protocol.Result, 4)
	stop := runWorker(t, store, transcribe.NewMock(), log, results)

	res := waitResult(t, results)
	transcript, ok := res.Ok()
	if !ok {
		jobErr, _ := res.Err()
		t.Fatalf("expected Ok result, got error %+v", jobErr)
	}
	if transcript.ID != job.ID {
		t.Fatalf("result id %s, want %s", transcript.ID, job.ID)
	}
	if transcript.Metadata == nil || transcript.Metadata.Model != "mock" || transcript.Metadata.WorkerID != "w-test-1" {
		t.Fatalf("unexpected metadata %+v", transcript.Metadata)
	}

	stop()
	completed, ok := log.last(protocol.StatusMessageCompleted)
	if !ok {
		t.Fatal("no MessageCompleted event emitted")
	}
	if !completed.Status.Success || completed.Status.MessageID != job.ID {
		t.Fatalf("unexpected completion %+v", completed.Status)
	}
}

func TestWorkerReportsInferenceFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chunk := testsupport.NewChunk(t, 16000, 1)
	job := testsupport.EnqueueJob(t, store, chunk, 0)

	log := &statusLog{}
	results := make(chan protocol.Result, 4)
	engine := &failingEngine{err: errors.New("model exploded")}
	stop := runWorker(t, store, engine, log, results)

	res := waitResult(t, results)
	if _, ok := res.Ok(); ok {
		t.Fatal("inference failure must never produce an Ok result")
	}
	jobErr, ok := res.Err()
	if !ok {
		t.Fatal("expected error result")
	}
	if jobErr.ID != job.ID {
		t.Fatalf("error result id %s, want %s", jobErr.ID, job.ID)
	}
	if jobErr.Code != protocol.ErrCodeProcessing {
		t.Fatalf("error code %q, want %q", jobErr.Code, protocol.ErrCodeProcessing)
	}

	stop()
	completed, ok := log.last(protocol.StatusMessageCompleted)
	if !ok {
		t.Fatal("no MessageCompleted event emitted")
	}
	if completed.Status.Success {
		t.Fatal("completion reported success for a failed job")
	}
}

func TestWorkerSurvivesMalformedPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	bad := &queue.Job{ID: protocol.NewID(), Payload: []byte("not msgpack")}
	if _, err := store.Enqueue(ctx, bad); err != nil {
		t.Fatalf("Enqueue bad job: %v", err)
	}
	chunk := testsupport.NewChunk(t, 16000, 1)
	good := testsupport.EnqueueJob(t, store, chunk, 0)

	log := &statusLog{}
	results := make(chan protocol.Result, 4)
	runWorker(t, store, transcribe.NewMock(), log, results)

	first := waitResult(t, results)
	jobErr, ok := first.Err()
	if !ok {
		t.Fatal("malformed payload must yield an error result")
	}
	if jobErr.ID != bad.ID || jobErr.Code != protocol.ErrCodeDecode {
		t.Fatalf("unexpected error result %+v", jobErr)
	}

	// The loop keeps going: the next job still gets transcribed.
	second := waitResult(t, results)
	if transcript, ok := second.Ok(); !ok || transcript.ID != good.ID {
		t.Fatalf("expected transcript for %s, got %+v", good.ID, second)
	}
}

func TestWorkerEmitsLifecycleOnShutdown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	log := &statusLog{}
	results := make(chan protocol.Result, 1)
	stop := runWorker(t, store, transcribe.NewMock(), log, results)

	// Give the worker a moment to start polling before shutdown.
	time.Sleep(100 * time.Millisecond)
	stop()

	kinds := log.kinds()
	if len(kinds) < 2 {
		t.Fatalf("expected start and stop events, got %v", kinds)
	}
	if kinds[0] != protocol.StatusStarted {
		t.Fatalf("first event %s, want Started", kinds[0])
	}
	if kinds[len(kinds)-1] != protocol.StatusStopping {
		t.Fatalf("last event %s, want Stopping", kinds[len(kinds)-1])
	}
}

func TestWorkerHeartbeatsWhenIdle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	log := &statusLog{}
	results := make(chan protocol.Result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.NewWorker("w-test-1", store, transcribe.NewMock(), results, log.emit, 20*time.Millisecond, 50*time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := log.last(protocol.StatusHeartbeat); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no heartbeat emitted while idle")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
