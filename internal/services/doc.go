// Package services defines the shared error taxonomy for remote-provider and
// external-tool failures. Stage code wraps errors with a sentinel marker plus
// stage/operation context; the stage executor asks Retryable for the verdict
// instead of inspecting provider-specific error strings.
package services
