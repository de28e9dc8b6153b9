// Package summarization condenses chunk transcripts into short narratives
// and structured action items.
//
// The prompt demands a fixed SUMMARY / ACTION ITEMS layout; the parser is
// deliberately tolerant because models drift from the requested format. An
// unparseable response degrades to summary-only rather than failing.
package summarization
