// Package pricing computes provider costs for transcription and chat usage.
//
// Rates come from configuration with hardcoded fallbacks and are cached for
// an hour so hot paths avoid repeated resolution.
package pricing
