// Package queue persists job records in SQLite and owns the job lifecycle
// state machine. Every pipeline stage reads and writes its job through the
// Store; completed and failed are terminal, and the store enforces that the
// first terminal write wins under concurrent failures.
package queue
