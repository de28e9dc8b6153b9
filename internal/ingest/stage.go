package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"recap/internal/config"
	"recap/internal/logging"
	"recap/internal/media/ffprobe"
	"recap/internal/queue"
	"recap/internal/services"
	"recap/internal/stage"
	"recap/internal/storage"
)

// Stage copies a submitted recording into object storage and records its
// probed duration on the job.
type Stage struct {
	cfg    *config.Config
	store  *storage.Store
	logger *slog.Logger
}

// NewStage constructs the ingest stage handler.
func NewStage(cfg *config.Config, store *storage.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// Prepare validates the submitted source file before any copying happens.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	source := strings.TrimSpace(job.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, "ingest", "prepare", "job has no source path", nil)
	}
	info, err := os.Stat(source)
	if err != nil {
		return services.Wrap(services.ErrValidation, "ingest", "prepare",
			fmt.Sprintf("source file %s is not readable", source), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "ingest", "prepare",
			fmt.Sprintf("source %s is a directory", source), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "ingest", "prepare",
			fmt.Sprintf("source file %s is empty", source), nil)
	}
	return nil
}

// Execute copies the recording into storage and probes its duration.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)

	key := storage.VideoKey(job.JobID, job.FileName)
	if err := s.store.PutFile(key, job.SourcePath); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "store video",
			"copying recording into storage failed", err)
	}
	job.VideoRef = key

	videoPath, err := s.store.PathFor(key)
	if err != nil {
		return err
	}
	probe, err := ffprobe.Inspect(ctx, s.cfg.Tools.FFprobeBinary, videoPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ingest", "probe duration",
			"ffprobe failed on stored recording", err)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "ingest", "probe duration",
			"recording reports no duration", nil)
	}
	job.DurationSeconds = duration
	job.Status = queue.StatusVideoDownloaded

	logger.Info("recording ingested",
		logging.String("video_ref", key),
		logging.Float64("duration_seconds", duration))
	return nil
}

// HealthCheck verifies the probe binary is available.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.Tools.FFprobeBinary); err != nil {
		return stage.Unhealthy("ingest", fmt.Sprintf("ffprobe not found: %v", err))
	}
	return stage.Healthy("ingest")
}
