// Package workflow coordinates queue processing: it polls for jobs, drives
// each one through the registered pipeline stages, routes failures to the
// right error stage, and announces terminal outcomes.
package workflow
