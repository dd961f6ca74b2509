// Package queue provides the durable job store backing the transcription
// pipeline. Jobs persist in SQLite and are dispatched lowest priority value
// first, with insertion order breaking ties. Dequeue is atomic, so concurrent
// workers never receive the same row.
package queue
