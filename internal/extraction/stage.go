package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"recap/internal/config"
	"recap/internal/logging"
	"recap/internal/media/ffmpeg"
	"recap/internal/media/ffprobe"
	"recap/internal/queue"
	"recap/internal/services"
	"recap/internal/stage"
	"recap/internal/storage"
)

// Stage extracts the audio track from the stored recording.
type Stage struct {
	cfg    *config.Config
	store  *storage.Store
	runner *ffmpeg.Runner
	logger *slog.Logger
}

// NewStage constructs the audio extraction stage handler.
func NewStage(cfg *config.Config, store *storage.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		store:  store,
		runner: ffmpeg.NewRunner(cfg.Tools.FFmpegBinary, time.Duration(cfg.Tools.CommandTimeout)*time.Second),
		logger: logging.NewComponentLogger(logger, "extraction"),
	}
}

// Prepare confirms the upstream video artifact exists.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.VideoRef) == "" {
		return services.Wrap(services.ErrValidation, "extraction", "prepare", "job has no stored video", nil)
	}
	if !s.store.Exists(job.VideoRef) {
		return services.Wrap(services.ErrNotFound, "extraction", "prepare",
			fmt.Sprintf("stored video %s is missing", job.VideoRef), nil)
	}
	return nil
}

// Execute runs ffmpeg to produce the WAV artifact and records it on the job.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)

	videoPath, err := s.store.PathFor(job.VideoRef)
	if err != nil {
		return err
	}
	audioKey := storage.AudioKey(job.JobID)
	audioPath, err := s.store.PathFor(audioKey)
	if err != nil {
		return err
	}

	started := time.Now()
	if err := s.runner.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return err
	}

	// Some containers report no duration at ingest; the WAV always does.
	if job.DurationSeconds <= 0 {
		probe, err := ffprobe.Inspect(ctx, s.cfg.Tools.FFprobeBinary, audioPath)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "extraction", "probe duration",
				"ffprobe failed on extracted audio", err)
		}
		job.DurationSeconds = probe.DurationSeconds()
	}

	job.AudioRef = audioKey
	job.Status = queue.StatusAudioExtracted

	logger.Info("audio extracted",
		logging.String("audio_ref", audioKey),
		logging.Float64("duration_seconds", job.DurationSeconds),
		logging.Duration("extract_duration", time.Since(started)))
	return nil
}

// HealthCheck verifies the ffmpeg binary is available.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.Tools.FFmpegBinary); err != nil {
		return stage.Unhealthy("extraction", fmt.Sprintf("ffmpeg not found: %v", err))
	}
	return stage.Healthy("extraction")
}
