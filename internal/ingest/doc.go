// Package ingest brings a submitted recording into the pipeline workspace:
// it validates the source file, copies it into object storage, and probes the
// recording duration.
package ingest
