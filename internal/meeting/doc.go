// Package meeting defines the artifact contracts passed between pipeline
// stages: chunk descriptors, per-chunk transcript and summary results,
// extracted action items, and the final merged report. The JSON shapes match
// the objects persisted to storage so artifacts round-trip unchanged.
package meeting
