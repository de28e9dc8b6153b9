// Package stageexec wraps remote provider calls in a bounded-retry contract.
//
// Every call gets up to three attempts. Rate limiting, transient server
// faults, and timeouts are retried with exponential backoff; anything else
// fails immediately. Per-chunk callers catch the terminal error and record
// a failed result instead of aborting the job.
package stageexec
