package transcribe_test

import (
	"context"
	"strings"
	"testing"

	"scribe/internal/protocol"
	"scribe/internal/testsupport"
	"scribe/internal/transcribe"
)

func TestNewSelectsMockByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workers.Model = ""

	engine, err := transcribe.New(cfg)
	if err != nil {
		t.Fatalf("transcribe.New: %v", err)
	}
	if engine.Name() != "mock" {
		t.Fatalf("engine name %q, want mock", engine.Name())
	}
}

func TestNewRejectsUnknownModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workers.Model = "whisper-nonexistent"

	if _, err := transcribe.New(cfg); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestMockTranscribe(t *testing.T) {
	engine := transcribe.NewMock()
	chunk := protocol.NewAudioChunk(testsupport.Samples(16000), 16000, 1)

	outcome, err := engine.Transcribe(context.Background(), &chunk)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !strings.Contains(outcome.Text, "16000 Hz") {
		t.Fatalf("unexpected transcript %q", outcome.Text)
	}
	if outcome.Confidence <= 0 {
		t.Fatalf("confidence %f, want > 0", outcome.Confidence)
	}
}

func TestMockRejectsEmptyAudio(t *testing.T) {
	engine := transcribe.NewMock()
	chunk := protocol.NewAudioChunk(nil, 16000, 1)

	if _, err := engine.Transcribe(context.Background(), &chunk); err == nil {
		t.Fatal("expected error for empty audio")
	}
}
