package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ID is the 16-byte job identifier. It travels on the wire as a raw msgpack
// binary value, never as a textual UUID; both ends of every channel depend on
// that exact encoding.
type ID [16]byte

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID converts a canonical UUID string into an ID.
func ParseID(value string) (ID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return ID{}, fmt.Errorf("parse id: %w", err)
	}
	return ID(parsed), nil
}

// IDFromBytes validates and copies a 16-byte identifier.
func IDFromBytes(raw []byte) (ID, error) {
	if len(raw) != 16 {
		return ID{}, fmt.Errorf("id must be 16 bytes, got %d", len(raw))
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// String renders the identifier as a canonical UUID for logs and display.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ID{}
}

// EncodeMsgpack writes the identifier as a 16-byte binary value.
func (id ID) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(id[:])
}

// DecodeMsgpack reads a 16-byte binary identifier.
func (id *ID) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeBytes()
	if err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	parsed, err := IDFromBytes(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
