// Package logging builds the slog loggers used across recap and carries
// job-scoped fields (job id, stage, chunk, request id) through context so
// every component logs with the same correlation attributes.
package logging
