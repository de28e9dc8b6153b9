// Package extraction strips the audio track out of an ingested recording
// into the mono 16kHz WAV the transcription provider expects.
package extraction
