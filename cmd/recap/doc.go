// Package main hosts the recap CLI entrypoint and command graph.
//
// The Cobra-based command tree covers recording submission, queue
// maintenance, job inspection, notification testing, and configuration
// scaffolding, plus the long-running daemon that drives jobs through the
// pipeline. Configuration resolution and store lifecycle are centralized in
// commandContext so subcommands can focus on user experience instead of
// wiring.
package main
