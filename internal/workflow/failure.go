package workflow

import (
	"context"
	"errors"
	"strings"

	"recap/internal/logging"
	"recap/internal/metrics"
	"recap/internal/notifications"
	"recap/internal/queue"
	"recap/internal/services"
	"recap/internal/storage"
)

// ArtifactChecker reports whether a storage artifact exists. Satisfied by
// *storage.Store.
type ArtifactChecker interface {
	Exists(key string) bool
}

// resolveErrorStage prefers the pipeline position recorded on the error
// itself; artifact inspection classifies only untagged failures. The tag
// matters for zero-success jobs, where no per-chunk artifact exists even
// though the fan-out ran and the combine phase is the one that failed.
func resolveErrorStage(job *queue.Job, artifacts ArtifactChecker, err error) queue.ErrorStage {
	if tag, ok := services.TaggedStage(err); ok {
		if stage, known := queue.ParseErrorStage(tag); known {
			return stage
		}
	}
	return ClassifyErrorStage(job, artifacts)
}

// ClassifyErrorStage determines which pipeline position failed by inspecting
// which upstream artifacts the job has produced so far.
func ClassifyErrorStage(job *queue.Job, artifacts ArtifactChecker) queue.ErrorStage {
	switch {
	case strings.TrimSpace(job.VideoRef) == "":
		return queue.StageVideoDownload
	case strings.TrimSpace(job.AudioRef) == "":
		return queue.StageAudioExtraction
	case job.ChunkCount == 0:
		return queue.StageAudioChunking
	case artifacts == nil || !artifacts.Exists(storage.TranscriptKey(job.JobID, 0)):
		return queue.StageTranscription
	case !artifacts.Exists(storage.SummaryKey(job.JobID, 0)):
		return queue.StageSummarization
	case strings.TrimSpace(job.FinalResultRef) == "":
		return queue.StageResultCombination
	default:
		return queue.StageNotification
	}
}

func (m *Manager) handleStageFailure(ctx context.Context, ps PipelineStage, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	errorStage := resolveErrorStage(job, m.artifacts, stageErr)
	message := stageErr.Error()
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_stage", string(errorStage)),
		logging.Error(stageErr))

	if err := m.store.MarkFailed(ctx, job.JobID, errorStage, message); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	metrics.IncJobFailed(string(errorStage))

	if err := m.notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
		"file_name": job.FileName,
		"stage":     string(errorStage),
		"error":     stageErr,
	}); err != nil {
		m.noteNotificationFailure(ctx, logger, err)
	}
}

// announceCompletion publishes the final report. Notification delivery
// failures never fail a completed job; they are logged and counted only.
func (m *Manager) announceCompletion(ctx context.Context, job *queue.Job) {
	logger := logging.WithContext(ctx, m.logger)

	if err := m.notifier.Publish(ctx, notifications.EventJobCompleted, completionPayload(job)); err != nil {
		m.noteNotificationFailure(ctx, logger, err)
	}
}
