package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"recap/internal/logging"
	"recap/internal/meeting"
	"recap/internal/pricing"
	"recap/internal/services/transcribe"
	"recap/internal/stageexec"
	"recap/internal/storage"
)

// Client is the provider surface the stage needs.
type Client interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (Result, error)
}

// Result mirrors the provider's verbose transcription payload.
type Result = transcribe.Result

// Segment is one timestamped span of the provider payload.
type Segment = transcribe.Segment

// Stage transcribes chunks and persists their transcripts.
type Stage struct {
	client  Client
	store   *storage.Store
	pricing *pricing.Calculator
	logger  *slog.Logger

	// retryTimer overrides backoff sleeps in tests.
	retryTimer backoff.Timer
	now        func() time.Time
}

// NewStage wires the transcription stage.
func NewStage(client Client, store *storage.Store, calc *pricing.Calculator, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		client:  client,
		store:   store,
		pricing: calc,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessChunk transcribes one chunk. The returned result always carries the
// chunk identity; on failure it records status failed plus the error message
// instead of propagating the error.
func (s *Stage) ProcessChunk(ctx context.Context, chunk meeting.Chunk) meeting.TranscriptResult {
	ctx = logging.WithChunkID(ctx, chunk.ChunkID)
	logger := logging.WithContext(ctx, s.logger)

	result := meeting.TranscriptResult{
		ChunkID:   chunk.ChunkID,
		JobID:     chunk.JobID,
		StartTime: chunk.StartTime,
		EndTime:   chunk.EndTime,
	}

	started := s.now()
	var payload Result
	err := stageexec.Run(ctx, stageexec.Options{
		Logger:    logger,
		StageName: "transcription",
		Operation: "transcribe_chunk",
		Timer:     s.retryTimer,
	}, func(callCtx context.Context) error {
		audio, openErr := s.store.Open(chunk.StorageRef)
		if openErr != nil {
			return openErr
		}
		defer audio.Close()
		var callErr error
		payload, callErr = s.client.Transcribe(callCtx, audio, fmt.Sprintf("chunk_%d.wav", chunk.ChunkID))
		return callErr
	})
	result.ProcessingTimeSeconds = s.now().Sub(started).Seconds()

	if err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		logger.Error("chunk transcription failed", logging.Error(err))
		return result
	}

	duration := payload.Duration
	if duration <= 0 {
		duration = chunk.Duration
	}

	transcript := meeting.Transcript{
		ChunkID:   chunk.ChunkID,
		JobID:     chunk.JobID,
		Text:      payload.Text,
		Language:  payload.Language,
		Duration:  duration,
		StartTime: chunk.StartTime,
		EndTime:   chunk.EndTime,
	}
	for _, segment := range payload.Segments {
		transcript.Segments = append(transcript.Segments, meeting.TranscriptSegment{
			ID:    segment.ID,
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}

	transcriptRef := storage.TranscriptKey(chunk.JobID, chunk.ChunkID)
	if err := s.store.PutJSON(transcriptRef, transcript); err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		logger.Error("persist transcript failed", logging.Error(err))
		return result
	}

	result.Status = meeting.ResultSuccess
	result.StorageRef = transcriptRef
	result.TextLength = len(payload.Text)
	result.Language = payload.Language
	result.Duration = duration
	result.Cost = s.pricing.TranscriptionCost(duration)

	logger.Info(
		"chunk transcribed",
		logging.String(logging.FieldEventType, "chunk_transcribed"),
		logging.Int("text_length", result.TextLength),
		logging.Float64("duration_seconds", duration),
		logging.Float64("cost", result.Cost),
	)
	return result
}
