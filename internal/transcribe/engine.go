// Package transcribe defines the inference seam. The daemon only depends on
// the Engine interface; concrete engines are chosen at startup.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/config"
	"scribe/internal/protocol"
)

// Outcome is the product of one inference pass over an audio chunk.
type Outcome struct {
	Text       string
	Confidence float32
	Language   string
}

// Engine turns audio chunks into transcripts. Implementations must be safe
// for concurrent use; every worker in the pool shares one engine.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, chunk *protocol.AudioChunk) (*Outcome, error)
}

// New selects an engine by the configured model name.
func New(cfg *config.Config) (Engine, error) {
	model := strings.ToLower(strings.TrimSpace(cfg.Workers.Model))
	switch model {
	case "", "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown transcription model %q", cfg.Workers.Model)
	}
}
