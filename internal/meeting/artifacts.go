package meeting

import (
	"fmt"
	"time"
)

// ResultStatus is the terminal state of one per-chunk stage invocation.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
	ResultSkipped ResultStatus = "skipped"
)

// Default field values used when the summarization response omits a field.
const (
	UnassignedOwner = "Unassigned"
	UnspecifiedDue  = "Not specified"
)

// Chunk describes one bounded, possibly overlapping slice of the audio
// stream. Chunks are immutable once planned.
type Chunk struct {
	ChunkID    int     `json:"chunk_id"`
	JobID      string  `json:"job_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	StorageRef string  `json:"storage_ref"`
}

// TimeRange renders the chunk window as a human-readable "MM:SS - MM:SS"
// label relative to the start of the recording.
func (c Chunk) TimeRange() string {
	return fmt.Sprintf("%s - %s", FormatTimestamp(c.StartTime), FormatTimestamp(c.EndTime))
}

// TranscriptSegment is one timestamped span of transcribed speech.
type TranscriptSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the full transcription payload persisted to storage.
type Transcript struct {
	ChunkID   int                 `json:"chunk_id"`
	JobID     string              `json:"job_id"`
	Text      string              `json:"text"`
	Language  string              `json:"language"`
	Duration  float64             `json:"duration"`
	StartTime float64             `json:"start_time"`
	EndTime   float64             `json:"end_time"`
	Segments  []TranscriptSegment `json:"segments,omitempty"`
}

// TranscriptResult is the per-chunk outcome of the transcription stage.
// Created once per chunk and never mutated afterward.
type TranscriptResult struct {
	ChunkID               int          `json:"chunk_id"`
	JobID                 string       `json:"job_id"`
	StorageRef            string       `json:"storage_ref,omitempty"`
	StartTime             float64      `json:"start_time"`
	EndTime               float64      `json:"end_time"`
	TextLength            int          `json:"text_length"`
	Language              string       `json:"language,omitempty"`
	Duration              float64      `json:"duration"`
	Cost                  float64      `json:"cost"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	Status                ResultStatus `json:"status"`
	Error                 string       `json:"error,omitempty"`
}

// TokenUsage counts prompt and completion tokens for one provider call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ActionItem is a structured task extracted from meeting content. Merging
// during deduplication fills default fields but never empties populated ones.
type ActionItem struct {
	Action      string `json:"action"`
	Owner       string `json:"owner"`
	DueDate     string `json:"due_date"`
	MentionedAt string `json:"mentioned_at,omitempty"`
	ChunkID     int    `json:"chunk_id"`
}

// ChunkSummary is the full summarization payload persisted to storage.
type ChunkSummary struct {
	ChunkID     int          `json:"chunk_id"`
	JobID       string       `json:"job_id"`
	TimeRange   string       `json:"time_range"`
	Summary     string       `json:"summary"`
	ActionItems []ActionItem `json:"action_items"`
	RawResponse string       `json:"raw_response,omitempty"`
}

// SummaryResult is the per-chunk outcome of the summarization stage.
type SummaryResult struct {
	ChunkID               int          `json:"chunk_id"`
	JobID                 string       `json:"job_id"`
	StorageRef            string       `json:"summary_storage_ref,omitempty"`
	TimeRange             string       `json:"time_range,omitempty"`
	ActionItemsCount      int          `json:"action_items_count"`
	Usage                 TokenUsage   `json:"usage_metrics"`
	Cost                  float64      `json:"cost"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	Status                ResultStatus `json:"status"`
	Error                 string       `json:"error,omitempty"`
}

// CostBreakdown aggregates provider spend per stage.
type CostBreakdown struct {
	TranscriptionCost float64 `json:"transcription_cost"`
	SummarizationCost float64 `json:"summarization_cost"`
	TotalCost         float64 `json:"total_cost"`
	Currency          string  `json:"currency"`
}

// PerformanceMetrics aggregates wall-clock stage durations in seconds.
type PerformanceMetrics struct {
	TranscriptionTimeSeconds   float64 `json:"transcription_time_seconds"`
	SummarizationTimeSeconds   float64 `json:"summarization_time_seconds"`
	TotalProcessingTimeSeconds float64 `json:"total_processing_time_seconds"`
}

// FinalResult is the merged, deduplicated report for one job. Created once by
// the combine stage, persisted to storage, mirrored into the job record.
type FinalResult struct {
	JobID                string             `json:"job_id"`
	MeetingName          string             `json:"meeting_name"`
	DurationSeconds      float64            `json:"duration_seconds"`
	DurationFormatted    string             `json:"duration_formatted"`
	FinalSummary         string             `json:"final_summary"`
	ActionItems          []ActionItem       `json:"action_items"`
	TotalChunksProcessed int                `json:"total_chunks_processed"`
	CostBreakdown        CostBreakdown      `json:"cost_breakdown"`
	UsageMetrics         TokenUsage         `json:"usage_metrics"`
	PerformanceMetrics   PerformanceMetrics `json:"performance_metrics"`
	CompletedAt          time.Time          `json:"completed_at"`
}

// FormatTimestamp renders seconds-from-start as MM:SS, rolling over to
// HH:MM:SS past the first hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
