// Package chunking computes the overlapping chunk plan for a recording.
//
// Chunks advance by the chunk length minus the overlap so consecutive
// chunks share a window of audio. The overlap lets the summarizer see
// sentences that straddle a boundary; duplicated action items are
// reconciled later during result combination.
package chunking
