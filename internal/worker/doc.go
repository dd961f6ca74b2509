// Package worker implements the transcription workers. Each worker pulls
// jobs from the durable store, runs the configured inference engine, and
// publishes exactly one result per job, reporting its lifecycle on the
// control channel as it goes.
package worker
