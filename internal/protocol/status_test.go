package protocol_test

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"scribe/internal/protocol"
)

func TestStatusEventRoundTrips(t *testing.T) {
	jobID := protocol.NewID()

	events := []protocol.StatusEvent{
		protocol.NewStarted("w1"),
		protocol.NewMessageReceived("w1", jobID),
		protocol.NewMessageCompleted("w1", jobID, true, 420),
		protocol.NewHeartbeat("w1", 17, 3600),
		protocol.NewWorkerError("w1", "model load failed"),
		protocol.NewStopping("w1"),
	}

	for _, ev := range events {
		t.Run(string(ev.Status.Kind), func(t *testing.T) {
			raw, err := protocol.EncodeStatusEvent(&ev)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := protocol.DecodeStatusEvent(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.WorkerID != "w1" {
				t.Fatalf("worker id mismatch: %q", decoded.WorkerID)
			}
			if decoded.Status.Kind != ev.Status.Kind {
				t.Fatalf("kind mismatch: %q != %q", decoded.Status.Kind, ev.Status.Kind)
			}
			switch decoded.Status.Kind {
			case protocol.StatusMessageReceived:
				if decoded.Status.MessageID != jobID {
					t.Fatal("message id lost")
				}
			case protocol.StatusMessageCompleted:
				if decoded.Status.MessageID != jobID || !decoded.Status.Success || decoded.Status.DurationMs != 420 {
					t.Fatalf("completed fields lost: %+v", decoded.Status)
				}
			case protocol.StatusHeartbeat:
				if decoded.Status.MessagesProcessed != 17 || decoded.Status.UptimeSeconds != 3600 {
					t.Fatalf("heartbeat fields lost: %+v", decoded.Status)
				}
			case protocol.StatusError:
				if decoded.Status.Message != "model load failed" {
					t.Fatalf("error message lost: %q", decoded.Status.Message)
				}
			}
		})
	}
}

func TestStatusWireShapeUsesTypeTag(t *testing.T) {
	ev := protocol.NewHeartbeat("w2", 3, 60)
	raw, err := protocol.EncodeStatusEvent(&ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var generic map[string]any
	if err := msgpack.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("generic unmarshal: %v", err)
	}
	status, ok := generic["status"].(map[string]any)
	if !ok {
		t.Fatalf("expected status map, got %T", generic["status"])
	}
	if status["type"] != "Heartbeat" {
		t.Fatalf("expected type tag Heartbeat, got %v", status["type"])
	}
	if _, ok := generic["timestamp"].(string); !ok {
		t.Fatalf("expected RFC3339 string timestamp, got %T", generic["timestamp"])
	}
}

func TestDecodeStatusEventRejectsMissingType(t *testing.T) {
	raw, err := msgpack.Marshal(map[string]any{
		"worker_id": "w3",
		"status":    map[string]any{"message": "no tag"},
		"timestamp": "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := protocol.DecodeStatusEvent(raw); err == nil {
		t.Fatal("expected error for status without type tag")
	}
}

func TestDecodeStatusEventRequiresWorkerID(t *testing.T) {
	ev := protocol.NewStarted("")
	raw, err := protocol.EncodeStatusEvent(&ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := protocol.DecodeStatusEvent(raw); err == nil {
		t.Fatal("expected error for empty worker id")
	}
}
