// Package monitor tracks worker health from the status events workers emit
// on the control channel. It detects missed heartbeats, surfaces jobs
// stranded on dead workers, and serves the records behind the status API.
package monitor
