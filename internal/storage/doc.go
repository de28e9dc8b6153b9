// Package storage is a filesystem-backed object store for job artifacts.
//
// Every artifact a job produces lives under a stable key beneath the data
// directory, so stages hand each other storage references instead of local
// paths. Keys follow meetings/<job>/<kind>/<name>.
package storage
