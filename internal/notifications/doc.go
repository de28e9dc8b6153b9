// Package notifications delivers job lifecycle events to a Slack incoming
// webhook. An unconfigured webhook yields a noop service.
package notifications
