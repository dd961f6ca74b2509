package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Error codes surfaced to submitting clients.
const (
	ErrCodeProcessing = "PROCESSING_ERROR"
	ErrCodeDecode     = "DECODE_ERROR"
)

// TranscriptMetadata carries optional details about how a transcript was
// produced.
type TranscriptMetadata struct {
	Language         string            `msgpack:"language,omitempty"`
	ProcessingTimeMs uint64            `msgpack:"processing_time_ms,omitempty"`
	Model            string            `msgpack:"model,omitempty"`
	WorkerID         string            `msgpack:"worker_id,omitempty"`
	Extra            map[string]string `msgpack:"extra,omitempty"`
}

// Transcript is the successful outcome of a job, correlated by ID.
type Transcript struct {
	ID         ID                  `msgpack:"id"`
	Text       string              `msgpack:"text"`
	Confidence float32             `msgpack:"confidence"`
	Timestamp  WireTime            `msgpack:"timestamp"`
	Metadata   *TranscriptMetadata `msgpack:"metadata,omitempty"`
}

// JobError is the failed outcome of a job, correlated by ID.
type JobError struct {
	ID       ID     `msgpack:"id"`
	Message  string `msgpack:"message"`
	Code     string `msgpack:"error_code"`
	WorkerID string `msgpack:"worker_id"`
}

// Result is the tagged Ok/Err union sent back to clients. Exactly one arm is
// set. On the wire it is a single-key map: {"Ok": transcript} or
// {"Err": jobError}.
type Result struct {
	ok  *Transcript
	err *JobError
}

// NewOk wraps a transcript in a successful result.
func NewOk(t *Transcript) Result {
	return Result{ok: t}
}

// NewErr wraps a job error in a failed result.
func NewErr(e *JobError) Result {
	return Result{err: e}
}

// Ok returns the transcript arm when the result is successful.
func (r Result) Ok() (*Transcript, bool) {
	return r.ok, r.ok != nil
}

// Err returns the error arm when the result is a failure.
func (r Result) Err() (*JobError, bool) {
	return r.err, r.err != nil
}

// JobID returns the correlation identifier from whichever arm is set.
func (r Result) JobID() ID {
	switch {
	case r.ok != nil:
		return r.ok.ID
	case r.err != nil:
		return r.err.ID
	default:
		return ID{}
	}
}

// EncodeMsgpack writes the tagged union form.
func (r Result) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	switch {
	case r.ok != nil:
		if err := enc.EncodeString("Ok"); err != nil {
			return err
		}
		return enc.Encode(r.ok)
	case r.err != nil:
		if err := enc.EncodeString("Err"); err != nil {
			return err
		}
		return enc.Encode(r.err)
	default:
		return fmt.Errorf("encode result: neither arm set")
	}
}

// DecodeMsgpack reads the tagged union form.
func (r *Result) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("decode result: expected single-key map, got %d keys", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("decode result tag: %w", err)
	}
	switch tag {
	case "Ok":
		var t Transcript
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("decode transcript: %w", err)
		}
		*r = Result{ok: &t}
		return nil
	case "Err":
		var e JobError
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("decode job error: %w", err)
		}
		*r = Result{err: &e}
		return nil
	default:
		return fmt.Errorf("decode result: unknown tag %q", tag)
	}
}

// EncodeResult serializes a result to its wire form.
func EncodeResult(r Result) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// DecodeResult parses a result from its wire form.
func DecodeResult(raw []byte) (Result, error) {
	var r Result
	if err := msgpack.Unmarshal(raw, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}
