// Command scribe is the client CLI for the scribe daemon. It submits audio
// jobs over the ZeroMQ job channel and inspects daemon state through the
// HTTP status API.
package main
