package queue

import (
	"time"

	"scribe/internal/protocol"
)

// Job is one persisted queue row. Seq is the insertion sequence used for the
// FIFO tie-break; duplicate job IDs produce independent rows.
type Job struct {
	Seq        int64
	ID         protocol.ID
	Priority   int32
	EnqueuedAt time.Time
	Payload    []byte
}

// FromEnvelope converts a wire envelope into a storable job. The payload is
// the encoded audio chunk; workers decode it at dispatch time.
func FromEnvelope(env *protocol.JobEnvelope) (*Job, error) {
	payload, err := protocol.EncodeChunk(&env.Data)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:       env.ID,
		Priority: env.Priority,
		Payload:  payload,
	}, nil
}

// Stats summarizes queue depth for diagnostics.
type Stats struct {
	Depth       int   `json:"depth"`
	MinPriority int32 `json:"min_priority"`
	MaxPriority int32 `json:"max_priority"`
}
