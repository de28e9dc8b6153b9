package workflow

import (
	"recap/internal/queue"
	"recap/internal/stage"
)

// Stages assembles the standard three-stage pipeline in execution order.
func Stages(ingest, extraction, processing stage.Handler) []PipelineStage {
	return []PipelineStage{
		{
			Name:       "ingest",
			Trigger:    queue.StatusInitiated,
			Processing: queue.StatusDownloading,
			Done:       queue.StatusVideoDownloaded,
			Handler:    ingest,
		},
		{
			Name:       "extraction",
			Trigger:    queue.StatusVideoDownloaded,
			Processing: queue.StatusExtractingAudio,
			Done:       queue.StatusAudioExtracted,
			Handler:    extraction,
		},
		{
			Name:       "processing",
			Trigger:    queue.StatusAudioExtracted,
			Processing: queue.StatusProcessing,
			Done:       queue.StatusCompleted,
			Handler:    processing,
		},
	}
}
