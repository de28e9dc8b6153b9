// Package report merges per-chunk summaries into the final meeting report:
// narrative assembly in chunk order, fuzzy action-item deduplication, and
// cost/usage/performance aggregation.
package report
