// Package protocol defines the MessagePack wire model shared by clients,
// the broker, workers, and the control-plane monitor: job envelopes, audio
// chunks, Ok/Err results, and worker status events.
package protocol
