// Package processing drives the fan-out phase of a job: it realizes the
// chunk plan with ffmpeg, runs transcription and summarization for each chunk
// under a bounded worker pool, and merges the surviving results into the
// final report.
package processing
