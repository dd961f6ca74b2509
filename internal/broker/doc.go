// Package broker provides the ZeroMQ front of the service: it accepts job
// envelopes, publishes transcription results, and relays worker status
// events to the monitor. All sockets are bound by the broker; clients and
// out-of-process workers connect to them.
package broker
