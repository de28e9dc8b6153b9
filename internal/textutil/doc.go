// Package textutil provides text processing utilities for similarity
// scoring and filename sanitization.
//
// The primary use cases are:
//   - Scoring near-duplicate action items from overlapping transcript chunks
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Similarity uses the Ratcliff/Obershelp algorithm over lowercased text,
// which matches on longest common substrings and so tolerates small
// wording differences between two renderings of the same sentence.
package textutil
