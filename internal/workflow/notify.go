package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"recap/internal/logging"
	"recap/internal/meeting"
	"recap/internal/metrics"
	"recap/internal/notifications"
	"recap/internal/queue"
)

func completionPayload(job *queue.Job) notifications.Payload {
	var items []meeting.ActionItem
	if job.ActionItemsJSON != "" {
		// Best effort: a decode failure just drops the items section.
		_ = json.Unmarshal([]byte(job.ActionItemsJSON), &items)
	}
	return notifications.Payload{
		"meeting_name": job.FileName,
		"duration":     meeting.FormatTimestamp(job.DurationSeconds),
		"summary":      job.FinalSummary,
		"action_items": items,
	}
}

func (m *Manager) noteNotificationFailure(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, could not deliver notification")
		return
	}
	metrics.IncNotificationFailure()
	logger.Warn("notification delivery failed", logging.Error(err))
}
