package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/protocol"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewChunk builds an audio chunk with a short synthetic sample buffer.
func NewChunk(t testing.TB, sampleRate uint32, channels uint8) protocol.AudioChunk {
	t.Helper()

	samples := Samples(int(sampleRate) / 100)
	return protocol.NewAudioChunk(samples, sampleRate, channels)
}

// EnqueueJob persists a fresh job built from the given chunk and priority,
// returning the stored job.
func EnqueueJob(t testing.TB, store *queue.Store, chunk protocol.AudioChunk, priority int32) *queue.Job {
	t.Helper()

	env := protocol.NewJobEnvelope(chunk, priority)
	job, err := queue.FromEnvelope(&env)
	if err != nil {
		t.Fatalf("queue.FromEnvelope: %v", err)
	}
	if _, err := store.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

// Samples produces n float32 samples forming a quiet ramp. Tests only care
// that the payload is non-empty and round-trips.
func Samples(n int) []float32 {
	if n <= 0 {
		n = 16
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%100) / 1000
	}
	return out
}
