// Package transcription turns audio chunks into timestamped transcripts.
//
// Each chunk is processed independently: a provider failure after the retry
// budget produces a failed result record, never a job abort.
package transcription
