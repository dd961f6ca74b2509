// Package daemon wires the transcription service together: the durable job
// store, the ZeroMQ broker, the worker pool, the worker monitor, and the
// HTTP status API. It enforces single-instance execution with a lock file
// and owns the shutdown ordering that lets in-flight jobs finish.
package daemon
