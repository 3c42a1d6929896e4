// Package config loads SDK configuration from a YAML file and the
// environment, and assembles the configured client stack.
//
// Load reads an optional .env file, expands ${VAR} references in the
// YAML, applies RELAY_* environment overrides, and fills in defaults.
// Build then wires the transport client, domain facade, connection
// monitor, and telemetry into a ready-to-use SDK value.
package config
