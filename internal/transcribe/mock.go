package transcribe

import (
	"context"
	"fmt"

	"scribe/internal/protocol"
)

// MockEngine produces deterministic placeholder transcripts. It stands in for
// a real model during development and in tests.
type MockEngine struct{}

// NewMock returns the placeholder engine.
func NewMock() *MockEngine {
	return &MockEngine{}
}

// Name reports the engine identifier used in result metadata.
func (e *MockEngine) Name() string {
	return "mock"
}

// Transcribe synthesizes a transcript describing the chunk. Empty audio is an
// inference failure, matching how a real model rejects zero-length input.
func (e *MockEngine) Transcribe(ctx context.Context, chunk *protocol.AudioChunk) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunk == nil || len(chunk.Audio) == 0 {
		return nil, fmt.Errorf("empty audio chunk")
	}

	duration := chunk.Duration()
	return &Outcome{
		Text:       fmt.Sprintf("[mock transcript: %.2fs of audio at %d Hz]", duration.Seconds(), chunk.SampleRate),
		Confidence: 0.95,
		Language:   "en",
	}, nil
}
