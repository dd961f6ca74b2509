package protocol

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// WireTime is a timestamp that encodes as an RFC 3339 string but tolerates
// the numeric unix-seconds form some producers in the reference system emit.
type WireTime struct {
	time.Time
}

// Now returns the current UTC time as a WireTime.
func Now() WireTime {
	return WireTime{time.Now().UTC()}
}

// EncodeMsgpack writes the timestamp as an RFC 3339 string.
func (t WireTime) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(t.UTC().Format(time.RFC3339Nano))
}

// DecodeMsgpack accepts an RFC 3339 string or numeric unix seconds.
func (t *WireTime) DecodeMsgpack(dec *msgpack.Decoder) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case msgpcode.IsString(code):
		raw, err := dec.DecodeString()
		if err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("decode timestamp %q: %w", raw, err)
			}
		}
		t.Time = parsed.UTC()
		return nil
	case code == msgpcode.Float, code == msgpcode.Double:
		seconds, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		sec := int64(seconds)
		nsec := int64((seconds - float64(sec)) * float64(time.Second))
		t.Time = time.Unix(sec, nsec).UTC()
		return nil
	default:
		seconds, err := dec.DecodeInt64()
		if err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		t.Time = time.Unix(seconds, 0).UTC()
		return nil
	}
}

// AudioChunk carries the audio samples for one transcription job.
type AudioChunk struct {
	ID         ID                `msgpack:"id"`
	Audio      []float32         `msgpack:"audio"`
	SampleRate uint32            `msgpack:"sample_rate"`
	Channels   uint8             `msgpack:"channels"`
	Timestamp  WireTime          `msgpack:"timestamp"`
	Metadata   map[string]string `msgpack:"metadata,omitempty"`
}

// NewAudioChunk builds a chunk with a fresh identifier and current timestamp.
func NewAudioChunk(audio []float32, sampleRate uint32, channels uint8) AudioChunk {
	if channels == 0 {
		channels = 1
	}
	return AudioChunk{
		ID:         NewID(),
		Audio:      audio,
		SampleRate: sampleRate,
		Channels:   channels,
		Timestamp:  Now(),
	}
}

// ChannelCount returns the channel count, applying the wire default of 1.
func (c *AudioChunk) ChannelCount() uint8 {
	if c.Channels == 0 {
		return 1
	}
	return c.Channels
}

// Duration computes the audio length from sample count and rate.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	frames := len(c.Audio) / int(c.ChannelCount())
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// JobEnvelope is the wire frame a client pushes onto the job channel.
type JobEnvelope struct {
	ID        ID         `msgpack:"id"`
	Data      AudioChunk `msgpack:"data"`
	Priority  int32      `msgpack:"priority"`
	Timestamp int64      `msgpack:"timestamp"`
}

// NewJobEnvelope wraps a chunk for submission. Lower priority values are
// dispatched first; the default is 0.
func NewJobEnvelope(chunk AudioChunk, priority int32) JobEnvelope {
	return JobEnvelope{
		ID:        chunk.ID,
		Data:      chunk,
		Priority:  priority,
		Timestamp: time.Now().Unix(),
	}
}

// EncodeEnvelope serializes a job envelope to its wire form.
func EncodeEnvelope(env *JobEnvelope) ([]byte, error) {
	data, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a job envelope from its wire form.
func DecodeEnvelope(raw []byte) (*JobEnvelope, error) {
	var env JobEnvelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.ID.IsZero() {
		return nil, fmt.Errorf("decode envelope: missing id")
	}
	return &env, nil
}

// DecodeChunk parses a bare audio chunk payload.
func DecodeChunk(raw []byte) (*AudioChunk, error) {
	var chunk AudioChunk
	if err := msgpack.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	return &chunk, nil
}

// EncodeChunk serializes an audio chunk payload.
func EncodeChunk(chunk *AudioChunk) ([]byte, error) {
	data, err := msgpack.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	return data, nil
}
