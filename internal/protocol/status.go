package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// StatusKind tags the worker-status union.
type StatusKind string

const (
	StatusStarted          StatusKind = "Started"
	StatusMessageReceived  StatusKind = "MessageReceived"
	StatusMessageCompleted StatusKind = "MessageCompleted"
	StatusHeartbeat        StatusKind = "Heartbeat"
	StatusError            StatusKind = "Error"
	StatusStopping         StatusKind = "Stopping"
)

// WorkerStatus is the internally tagged union describing one worker
// lifecycle event. Only the fields for the active kind are meaningful.
type WorkerStatus struct {
	Kind StatusKind

	// MessageReceived and MessageCompleted.
	MessageID ID

	// MessageCompleted.
	Success    bool
	DurationMs uint64

	// Heartbeat.
	MessagesProcessed uint64
	UptimeSeconds     uint64

	// Error.
	Message string
}

// StatusEvent frames a WorkerStatus for the control channel.
type StatusEvent struct {
	WorkerID  string            `msgpack:"worker_id"`
	Status    WorkerStatus      `msgpack:"status"`
	Timestamp WireTime          `msgpack:"timestamp"`
	Metadata  map[string]string `msgpack:"metadata,omitempty"`
}

func newStatusEvent(workerID string, status WorkerStatus) StatusEvent {
	return StatusEvent{WorkerID: workerID, Status: status, Timestamp: Now()}
}

// NewStarted reports that a worker came up.
func NewStarted(workerID string) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{Kind: StatusStarted})
}

// NewMessageReceived reports that a worker picked up a job, before inference
// begins.
func NewMessageReceived(workerID string, jobID ID) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{Kind: StatusMessageReceived, MessageID: jobID})
}

// NewMessageCompleted reports the terminal outcome of a job attempt.
func NewMessageCompleted(workerID string, jobID ID, success bool, durationMs uint64) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{
		Kind:       StatusMessageCompleted,
		MessageID:  jobID,
		Success:    success,
		DurationMs: durationMs,
	})
}

// NewHeartbeat reports liveness from an idle worker.
func NewHeartbeat(workerID string, processed, uptimeSeconds uint64) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{
		Kind:              StatusHeartbeat,
		MessagesProcessed: processed,
		UptimeSeconds:     uptimeSeconds,
	})
}

// NewWorkerError reports a non-job-scoped worker fault.
func NewWorkerError(workerID, message string) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{Kind: StatusError, Message: message})
}

// NewStopping reports an orderly worker shutdown.
func NewStopping(workerID string) StatusEvent {
	return newStatusEvent(workerID, WorkerStatus{Kind: StatusStopping})
}

// EncodeMsgpack writes the status as a map tagged with a "type" field.
func (s WorkerStatus) EncodeMsgpack(enc *msgpack.Encoder) error {
	type field struct {
		key   string
		write func() error
	}
	var fields []field

	switch s.Kind {
	case StatusStarted, StatusStopping:
	case StatusMessageReceived:
		fields = []field{
			{"message_id", func() error { return s.MessageID.EncodeMsgpack(enc) }},
		}
	case StatusMessageCompleted:
		fields = []field{
			{"message_id", func() error { return s.MessageID.EncodeMsgpack(enc) }},
			{"success", func() error { return enc.EncodeBool(s.Success) }},
			{"duration_ms", func() error { return enc.EncodeUint64(s.DurationMs) }},
		}
	case StatusHeartbeat:
		fields = []field{
			{"messages_processed", func() error { return enc.EncodeUint64(s.MessagesProcessed) }},
			{"uptime_seconds", func() error { return enc.EncodeUint64(s.UptimeSeconds) }},
		}
	case StatusError:
		fields = []field{
			{"message", func() error { return enc.EncodeString(s.Message) }},
		}
	default:
		return fmt.Errorf("encode status: unknown kind %q", s.Kind)
	}

	if err := enc.EncodeMapLen(1 + len(fields)); err != nil {
		return err
	}
	if err := enc.EncodeString("type"); err != nil {
		return err
	}
	if err := enc.EncodeString(string(s.Kind)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		if err := f.write(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads the tagged map form.
func (s *WorkerStatus) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	decoded := WorkerStatus{}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return fmt.Errorf("decode status key: %w", err)
		}
		switch key {
		case "type":
			kind, err := dec.DecodeString()
			if err != nil {
				return fmt.Errorf("decode status type: %w", err)
			}
			decoded.Kind = StatusKind(kind)
		case "message_id":
			if err := decoded.MessageID.DecodeMsgpack(dec); err != nil {
				return err
			}
		case "success":
			if decoded.Success, err = dec.DecodeBool(); err != nil {
				return fmt.Errorf("decode status success: %w", err)
			}
		case "duration_ms":
			if decoded.DurationMs, err = dec.DecodeUint64(); err != nil {
				return fmt.Errorf("decode status duration: %w", err)
			}
		case "messages_processed":
			if decoded.MessagesProcessed, err = dec.DecodeUint64(); err != nil {
				return fmt.Errorf("decode status processed: %w", err)
			}
		case "uptime_seconds":
			if decoded.UptimeSeconds, err = dec.DecodeUint64(); err != nil {
				return fmt.Errorf("decode status uptime: %w", err)
			}
		case "message":
			if decoded.Message, err = dec.DecodeString(); err != nil {
				return fmt.Errorf("decode status message: %w", err)
			}
		default:
			if err := dec.Skip(); err != nil {
				return fmt.Errorf("decode status: skip %q: %w", key, err)
			}
		}
	}

	switch decoded.Kind {
	case StatusStarted, StatusMessageReceived, StatusMessageCompleted,
		StatusHeartbeat, StatusError, StatusStopping:
	case "":
		return fmt.Errorf("decode status: missing type tag")
	default:
		return fmt.Errorf("decode status: unknown kind %q", decoded.Kind)
	}

	*s = decoded
	return nil
}

// EncodeStatusEvent serializes a status event to its wire form.
func EncodeStatusEvent(ev *StatusEvent) ([]byte, error) {
	data, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode status event: %w", err)
	}
	return data, nil
}

// DecodeStatusEvent parses a status event from its wire form.
func DecodeStatusEvent(raw []byte) (*StatusEvent, error) {
	var ev StatusEvent
	if err := msgpack.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode status event: %w", err)
	}
	if ev.WorkerID == "" {
		return nil, fmt.Errorf("decode status event: missing worker_id")
	}
	return &ev, nil
}
