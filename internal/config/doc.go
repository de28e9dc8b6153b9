// Package config loads, normalizes, and validates recap's TOML configuration.
// Defaults live in defaults.go; normalize.go expands paths and applies
// environment fallbacks (including a .env overlay for secrets); validate.go
// rejects unusable combinations before the daemon starts.
package config
