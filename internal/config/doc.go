// Package config loads, validates, and defaults the TOML configuration used
// by the scribe daemon and CLI.
package config
