package queue

import "errors"

// ErrTerminalState indicates an update was rejected because the stored job
// already reached completed or failed. The first terminal write wins; later
// writers observe this error and must not overwrite the stored outcome.
var ErrTerminalState = errors.New("job is in a terminal state")

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")
