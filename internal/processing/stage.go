package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"recap/internal/chunking"
	"recap/internal/config"
	"recap/internal/logging"
	"recap/internal/media/ffmpeg"
	"recap/internal/meeting"
	"recap/internal/metrics"
	"recap/internal/queue"
	"recap/internal/report"
	"recap/internal/services"
	"recap/internal/stage"
	"recap/internal/storage"
)

// Transcriber converts one audio chunk into a transcript result.
type Transcriber interface {
	ProcessChunk(ctx context.Context, chunk meeting.Chunk) meeting.TranscriptResult
}

// Summarizer converts one transcript result into a summary result.
type Summarizer interface {
	ProcessTranscript(ctx context.Context, transcript meeting.TranscriptResult) meeting.SummaryResult
}

// Stage runs chunk cutting, the per-chunk provider fan-out, and the final
// merge for one job.
type Stage struct {
	cfg         *config.Config
	store       *storage.Store
	runner      *ffmpeg.Runner
	transcriber Transcriber
	summarizer  Summarizer
	combiner    *report.Combiner
	logger      *slog.Logger
	now         func() time.Time
}

// NewStage wires the processing stage handler.
func NewStage(cfg *config.Config, store *storage.Store, transcriber Transcriber, summarizer Summarizer, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:         cfg,
		store:       store,
		runner:      ffmpeg.NewRunner(cfg.Tools.FFmpegBinary, time.Duration(cfg.Tools.CommandTimeout)*time.Second),
		transcriber: transcriber,
		summarizer:  summarizer,
		combiner:    report.NewCombiner(store, logger),
		logger:      logging.NewComponentLogger(logger, "processing"),
		now:         time.Now,
	}
}

// Prepare confirms the extracted audio artifact and probed duration exist.
func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.AudioRef) == "" {
		return services.Wrap(services.ErrValidation, "processing", "prepare", "job has no extracted audio", nil)
	}
	if !s.store.Exists(job.AudioRef) {
		return services.Wrap(services.ErrNotFound, "processing", "prepare",
			fmt.Sprintf("extracted audio %s is missing", job.AudioRef), nil)
	}
	if job.DurationSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "processing", "prepare", "job has no recording duration", nil)
	}
	return nil
}

// Execute runs the whole fan-out phase and mirrors the final report into the
// job record. Per-chunk failures never abort the job; only an empty set of
// successful summaries does.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	started := s.now()

	chunks, err := s.cutChunks(ctx, job)
	if err != nil {
		return services.TagStage(err, string(queue.StageAudioChunking))
	}
	job.ChunkCount = len(chunks)
	logger.Info("chunk plan realized", logging.Int("chunks", len(chunks)))

	transcripts, summaries := s.fanOut(ctx, chunks)

	result, err := s.combiner.Combine(ctx, report.Input{
		JobID:           job.JobID,
		MeetingName:     job.FileName,
		DurationSeconds: job.DurationSeconds,
		Transcripts:     transcripts,
		Summaries:       summaries,
	})
	if err != nil {
		// A zero-success fan-out fails here, so the combine phase owns the
		// failure even though no transcript artifact exists to prove it ran.
		return services.TagStage(err, string(queue.StageResultCombination))
	}

	if err := mirrorResult(job, result); err != nil {
		return services.TagStage(err, string(queue.StageResultCombination))
	}
	job.Status = queue.StatusCompleted
	completed := s.now().UTC()
	job.CompletedAt = &completed

	metrics.IncJobCompleted()
	metrics.ObserveJobDuration(time.Since(started).Seconds())
	logger.Info("job processing complete",
		logging.Int("chunks_processed", result.TotalChunksProcessed),
		logging.Int("action_items", len(result.ActionItems)),
		logging.Float64("total_cost", result.CostBreakdown.TotalCost))
	return nil
}

// cutChunks plans the chunk windows and cuts each one out of the extracted
// audio with ffmpeg.
func (s *Stage) cutChunks(ctx context.Context, job *queue.Job) ([]meeting.Chunk, error) {
	chunks, err := chunking.Plan(job.JobID, job.DurationSeconds, chunking.Options{
		ChunkSeconds:   s.cfg.Chunking.ChunkSeconds,
		OverlapSeconds: s.cfg.Chunking.OverlapSeconds,
	})
	if err != nil {
		return nil, err
	}

	audioPath, err := s.store.PathFor(job.AudioRef)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		key := storage.ChunkKey(job.JobID, chunks[i].ChunkID)
		chunkPath, err := s.store.PathFor(key)
		if err != nil {
			return nil, err
		}
		if err := s.runner.CutChunk(ctx, audioPath, chunkPath, chunks[i].StartTime, chunks[i].Duration); err != nil {
			return nil, err
		}
		chunks[i].StorageRef = key
	}
	return chunks, nil
}

// fanOut runs transcribe-then-summarize for every chunk under a bounded
// worker pool. Results come back indexed by chunk position; failures are
// carried as typed results, never as errors.
func (s *Stage) fanOut(ctx context.Context, chunks []meeting.Chunk) ([]meeting.TranscriptResult, []meeting.SummaryResult) {
	workers := s.cfg.Workflow.ChunkWorkers
	if workers <= 0 {
		workers = 1
	}

	transcripts := make([]meeting.TranscriptResult, len(chunks))
	summaries := make([]meeting.SummaryResult, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, chunk := range chunks {
		group.Go(func() error {
			transcript := s.transcriber.ProcessChunk(groupCtx, chunk)
			metrics.IncChunkProcessed("transcription", string(transcript.Status))

			summary := s.summarizer.ProcessTranscript(groupCtx, transcript)
			metrics.IncChunkProcessed("summarization", string(summary.Status))

			transcripts[i] = transcript
			summaries[i] = summary
			return nil
		})
	}
	// Workers only report typed results, so the group never carries an error.
	_ = group.Wait()
	return transcripts, summaries
}

// mirrorResult copies the final report fields onto the job record.
func mirrorResult(job *queue.Job, result meeting.FinalResult) error {
	actionItems, err := json.Marshal(result.ActionItems)
	if err != nil {
		return fmt.Errorf("encode action items: %w", err)
	}
	costs, err := json.Marshal(result.CostBreakdown)
	if err != nil {
		return fmt.Errorf("encode cost breakdown: %w", err)
	}
	usage, err := json.Marshal(result.UsageMetrics)
	if err != nil {
		return fmt.Errorf("encode usage metrics: %w", err)
	}
	performance, err := json.Marshal(result.PerformanceMetrics)
	if err != nil {
		return fmt.Errorf("encode performance metrics: %w", err)
	}

	job.FinalSummary = result.FinalSummary
	job.ActionItemsJSON = string(actionItems)
	job.TotalCost = result.CostBreakdown.TotalCost
	job.CostBreakdownJSON = string(costs)
	job.UsageMetricsJSON = string(usage)
	job.PerformanceMetricsJSON = string(performance)
	job.FinalResultRef = storage.FinalResultKey(job.JobID)
	return nil
}

// HealthCheck reports readiness of the provider-facing dependencies.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.transcriber == nil || s.summarizer == nil {
		return stage.Unhealthy("processing", "provider stages not configured")
	}
	return stage.Healthy("processing")
}
