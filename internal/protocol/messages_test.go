package protocol_test

import (
	"math"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"scribe/internal/protocol"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	chunk := protocol.NewAudioChunk([]float32{0.1, 0.2, 0.3, 0.4}, 16000, 1)
	chunk.Metadata = map[string]string{"source": "microphone"}
	env := protocol.NewJobEnvelope(chunk, 5)

	raw, err := protocol.EncodeEnvelope(&env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ID != env.ID {
		t.Fatalf("id mismatch: %s != %s", decoded.ID, env.ID)
	}
	if decoded.Priority != 5 {
		t.Fatalf("priority mismatch: %d", decoded.Priority)
	}
	if decoded.Timestamp != env.Timestamp {
		t.Fatalf("timestamp mismatch: %d != %d", decoded.Timestamp, env.Timestamp)
	}
	if len(decoded.Data.Audio) != 4 || decoded.Data.Audio[2] != float32(0.3) {
		t.Fatalf("audio mismatch: %v", decoded.Data.Audio)
	}
	if decoded.Data.SampleRate != 16000 || decoded.Data.ChannelCount() != 1 {
		t.Fatalf("unexpected chunk: %+v", decoded.Data)
	}
	if decoded.Data.Metadata["source"] != "microphone" {
		t.Fatalf("metadata mismatch: %v", decoded.Data.Metadata)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := protocol.DecodeEnvelope([]byte("not msgpack")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeEnvelopeRequiresID(t *testing.T) {
	raw, err := msgpack.Marshal(map[string]any{"priority": int32(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := protocol.DecodeEnvelope(raw); err == nil {
		t.Fatal("expected error for envelope without id")
	}
}

func TestWireTimeAcceptsStringAndNumeric(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		name  string
		value any
	}{
		{"rfc3339", want.Format(time.RFC3339)},
		{"rfc3339nano", want.Format(time.RFC3339Nano)},
		{"float_seconds", float64(want.Unix())},
		{"int_seconds", want.Unix()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := msgpack.Marshal(tc.value)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var wt protocol.WireTime
			if err := msgpack.Unmarshal(raw, &wt); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !wt.Equal(want) {
				t.Fatalf("expected %s, got %s", want, wt.Time)
			}
		})
	}
}

func TestWireTimeFractionalSeconds(t *testing.T) {
	raw, err := msgpack.Marshal(1234567890.5)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wt protocol.WireTime
	if err := msgpack.Unmarshal(raw, &wt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wt.Unix() != 1234567890 {
		t.Fatalf("unexpected seconds: %d", wt.Unix())
	}
	if math.Abs(float64(wt.Nanosecond())-5e8) > 1e3 {
		t.Fatalf("unexpected nanoseconds: %d", wt.Nanosecond())
	}
}

func TestChunkDuration(t *testing.T) {
	chunk := protocol.NewAudioChunk(make([]float32, 16000), 16000, 1)
	if chunk.Duration() != time.Second {
		t.Fatalf("expected 1s, got %s", chunk.Duration())
	}

	stereo := protocol.NewAudioChunk(make([]float32, 16000), 16000, 2)
	if stereo.Duration() != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", stereo.Duration())
	}
}
