package summarization

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"recap/internal/logging"
	"recap/internal/meeting"
	"recap/internal/pricing"
	"recap/internal/services/chat"
	"recap/internal/stageexec"
	"recap/internal/storage"
)

// Client is the provider surface the stage needs.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}

// Completion is the model reply plus its token usage.
type Completion = chat.Completion

// Stage summarizes chunk transcripts and persists the structured summaries.
type Stage struct {
	client  Client
	store   *storage.Store
	pricing *pricing.Calculator
	logger  *slog.Logger

	// retryTimer overrides backoff sleeps in tests.
	retryTimer backoff.Timer
	now        func() time.Time
}

// NewStage wires the summarization stage.
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

// ProcessTranscript summarizes one transcribed chunk. A failed transcription
// is skipped without a provider call; provider failure after retries yields a
// failed result record.
func (s *Stage) ProcessTranscript(ctx context.Context, transcriptResult meeting.TranscriptResult) meeting.SummaryResult {
	ctx = logging.WithChunkID(ctx, transcriptResult.ChunkID)
	logger := logging.WithContext(ctx, s.logger)

	result := meeting.SummaryResult{
		ChunkID: transcriptResult.ChunkID,
		JobID:   transcriptResult.JobID,
	}

	if transcriptResult.Status != meeting.ResultSuccess {
		result.Status = meeting.ResultSkipped
		result.Error = "transcription failed"
		logger.Info("skipping summarization for failed transcription")
		return result
	}

	var transcript meeting.Transcript
	if err := s.store.GetJSON(transcriptResult.StorageRef, &transcript); err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		logger.Error("load transcript failed", logging.Error(err))
		return result
	}

	timeRange := meeting.Chunk{
		StartTime: transcriptResult.StartTime,
		EndTime:   transcriptResult.EndTime,
	}.TimeRange()
	prompt := buildPrompt(timeRange, formatTranscript(transcript))

	started := s.now()
	var completion Completion
	err := stageexec.Run(ctx, stageexec.Options{
		Logger:    logger,
		StageName: "summarization",
		Operation: "summarize_chunk",
		Timer:     s.retryTimer,
	}, func(callCtx context.Context) error {
		var callErr error
		completion, callErr = s.client.Complete(callCtx, systemPrompt, prompt)
		return callErr
	})
	result.ProcessingTimeSeconds = s.now().Sub(started).Seconds()

	if err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		logger.Error("chunk summarization failed", logging.Error(err))
		return result
	}

	summaryText, actionItems := parseResponse(completion.Content)
	for i := range actionItems {
		actionItems[i].ChunkID = transcriptResult.ChunkID
		actionItems[i].MentionedAt = timeRange
	}

	summary := meeting.ChunkSummary{
		ChunkID:     transcriptResult.ChunkID,
		JobID:       transcriptResult.JobID,
		TimeRange:   timeRange,
		Summary:     summaryText,
		ActionItems: actionItems,
		RawResponse: completion.Content,
	}
	summaryRef := storage.SummaryKey(transcriptResult.JobID, transcriptResult.ChunkID)
	if err := s.store.PutJSON(summaryRef, summary); err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		logger.Error("persist summary failed", logging.Error(err))
		return result
	}

	result.Status = meeting.ResultSuccess
	result.StorageRef = summaryRef
	result.TimeRange = timeRange
	result.ActionItemsCount = len(actionItems)
	result.Usage = meeting.TokenUsage(completion.Usage)
	result.Cost = s.pricing.ChatCost(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	logger.Info(
		"chunk summarized",
		logging.String(logging.FieldEventType, "chunk_summarized"),
		logging.Int("action_items", result.ActionItemsCount),
		logging.Int("total_tokens", completion.Usage.TotalTokens),
		logging.Float64("cost", result.Cost),
	)
	return result
}
