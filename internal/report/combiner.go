package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/meeting"
	"recap/internal/services"
	"recap/internal/storage"
	"recap/internal/textutil"
)

// similarityThreshold is the Ratcliff/Obershelp ratio above which two action
// items are treated as the same task.
const similarityThreshold = 0.8

// Input carries everything the combiner needs for one job.
type Input struct {
	JobID           string
	MeetingName     string
	DurationSeconds float64
	Transcripts     []meeting.TranscriptResult
	Summaries       []meeting.SummaryResult
}

// Combiner assembles the final report from per-chunk stage results.
type Combiner struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCombiner wires the combine stage.
func NewCombiner(store *storage.Store, logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Combiner{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Combine merges all successful chunk summaries into one report, persists it
// to storage, and returns it. A job with zero successful summaries is an
// error; partial failures are tolerated as long as one chunk survived.
func (c *Combiner) Combine(ctx context.Context, in Input) (meeting.FinalResult, error) {
	logger := logging.WithContext(logging.WithJobID(ctx, in.JobID), c.logger)

	successful := make([]meeting.SummaryResult, 0, len(in.Summaries))
	for _, summary := range in.Summaries {
		if summary.Status == meeting.ResultSuccess {
			successful = append(successful, summary)
		}
	}
	if len(successful) == 0 {
		return meeting.FinalResult{}, services.Wrap(services.ErrValidation, "report", "combine",
			"no successful chunk summaries to combine", nil)
	}

	// Narrative order follows chunk position, never result arrival order.
	sort.Slice(successful, func(i, j int) bool {
		return successful[i].ChunkID < successful[j].ChunkID
	})

	var (
		narrative  []string
		candidates []meeting.ActionItem
		loaded     int
	)
	for _, summary := range successful {
		var doc meeting.ChunkSummary
		if err := c.store.GetJSON(summary.StorageRef, &doc); err != nil {
			logger.Warn("skipping unreadable chunk summary",
				logging.Int(logging.FieldChunkID, summary.ChunkID),
				logging.Error(err))
			continue
		}
		loaded++
		narrative = append(narrative, fmt.Sprintf("[%s] %s", doc.TimeRange, doc.Summary))
		for _, item := range doc.ActionItems {
			if item.MentionedAt == "" {
				item.MentionedAt = doc.TimeRange
			}
			item.ChunkID = summary.ChunkID
			candidates = append(candidates, item)
		}
	}
	if loaded == 0 {
		return meeting.FinalResult{}, services.Wrap(services.ErrValidation, "report", "combine",
			"no chunk summaries could be loaded", nil)
	}

	items := deduplicateActionItems(candidates)
	logger.Info("action items deduplicated",
		logging.Int("before", len(candidates)),
		logging.Int("after", len(items)))

	result := meeting.FinalResult{
		JobID:                in.JobID,
		MeetingName:          in.MeetingName,
		DurationSeconds:      in.DurationSeconds,
		DurationFormatted:    meeting.FormatTimestamp(in.DurationSeconds),
		FinalSummary:         strings.Join(narrative, "\n\n"),
		ActionItems:          items,
		TotalChunksProcessed: loaded,
		CostBreakdown:        aggregateCosts(in.Transcripts, successful),
		UsageMetrics:         aggregateUsage(successful),
		PerformanceMetrics:   aggregateTimes(in.Transcripts, successful),
		CompletedAt:          c.now().UTC(),
	}

	key := storage.FinalResultKey(in.JobID)
	if err := c.store.PutJSON(key, result); err != nil {
		return meeting.FinalResult{}, err
	}
	logger.Info("final report assembled",
		logging.Int("chunks", result.TotalChunksProcessed),
		logging.Int("action_items", len(result.ActionItems)),
		logging.Float64("total_cost", result.CostBreakdown.TotalCost))
	return result, nil
}

// deduplicateActionItems collapses near-identical tasks extracted from
// overlapping chunks. The first occurrence wins; later duplicates only fill
// fields the accepted item left at their defaults.
func deduplicateActionItems(items []meeting.ActionItem) []meeting.ActionItem {
	deduplicated := make([]meeting.ActionItem, 0, len(items))
	for _, item := range items {
		merged := false
		for i := range deduplicated {
			existing := &deduplicated[i]
			if textutil.SimilarityRatio(item.Action, existing.Action) <= similarityThreshold {
				continue
			}
			if item.Owner != meeting.UnassignedOwner && existing.Owner == meeting.UnassignedOwner {
				existing.Owner = item.Owner
			}
			if item.DueDate != meeting.UnspecifiedDue && existing.DueDate == meeting.UnspecifiedDue {
				existing.DueDate = item.DueDate
			}
			if existing.MentionedAt == "" && item.MentionedAt != "" {
				existing.MentionedAt = item.MentionedAt
			}
			merged = true
			break
		}
		if !merged {
			deduplicated = append(deduplicated, item)
		}
	}
	return deduplicated
}

func aggregateCosts(transcripts []meeting.TranscriptResult, summaries []meeting.SummaryResult) meeting.CostBreakdown {
	var transcription, summarization float64
	for _, t := range transcripts {
		if t.Status == meeting.ResultSuccess {
			transcription += t.Cost
		}
	}
	for _, s := range summaries {
		summarization += s.Cost
	}
	return meeting.CostBreakdown{
		TranscriptionCost: roundMoney(transcription),
		SummarizationCost: roundMoney(summarization),
		TotalCost:         roundMoney(transcription + summarization),
		Currency:          "USD",
	}
}

func aggregateUsage(summaries []meeting.SummaryResult) meeting.TokenUsage {
	var usage meeting.TokenUsage
	for _, s := range summaries {
		usage.Add(s.Usage)
	}
	return usage
}

func aggregateTimes(transcripts []meeting.TranscriptResult, summaries []meeting.SummaryResult) meeting.PerformanceMetrics {
	var transcription, summarization float64
	for _, t := range transcripts {
		if t.Status == meeting.ResultSuccess {
			transcription += t.ProcessingTimeSeconds
		}
	}
	for _, s := range summaries {
		summarization += s.ProcessingTimeSeconds
	}
	return meeting.PerformanceMetrics{
		TranscriptionTimeSeconds:   roundSeconds(transcription),
		SummarizationTimeSeconds:   roundSeconds(summarization),
		TotalProcessingTimeSeconds: roundSeconds(transcription + summarization),
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func roundSeconds(v float64) float64 {
	return math.Round(v*10) / 10
}
