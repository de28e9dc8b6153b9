package queue

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusInitiated       Status = "initiated"
	StatusDownloading     Status = "downloading"
	StatusVideoDownloaded Status = "video_downloaded"
	StatusExtractingAudio Status = "extracting_audio"
	StatusAudioExtracted  Status = "audio_extracted"
	StatusProcessing      Status = "processing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

var allStatuses = []Status{
	StatusInitiated,
	StatusDownloading,
	StatusVideoDownloaded,
	StatusExtractingAudio,
	StatusAudioExtracted,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// processingStatuses are in-flight markers a stage writes on entry. A job
// stranded in one of these (daemon crash) is rolled back to its stage start.
var processingRollback = map[Status]Status{
	StatusDownloading:     StatusInitiated,
	StatusExtractingAudio: StatusVideoDownloaded,
	StatusProcessing:      StatusAudioExtracted,
}

// ErrorStage tags a terminal failure with its pipeline position.
type ErrorStage string

const (
	StageVideoDownload     ErrorStage = "video_download"
	StageAudioExtraction   ErrorStage = "audio_extraction"
	StageAudioChunking     ErrorStage = "audio_chunking"
	StageTranscription     ErrorStage = "transcription"
	StageSummarization     ErrorStage = "summarization"
	StageResultCombination ErrorStage = "result_combination"
	StageNotification      ErrorStage = "notification"
)

var errorStageSet = map[ErrorStage]struct{}{
	StageVideoDownload:     {},
	StageAudioExtraction:   {},
	StageAudioChunking:     {},
	StageTranscription:     {},
	StageSummarization:     {},
	StageResultCombination: {},
	StageNotification:      {},
}

// ParseErrorStage converts a string into a known ErrorStage.
func ParseErrorStage(value string) (ErrorStage, bool) {
	stage := ErrorStage(strings.ToLower(strings.TrimSpace(value)))
	_, ok := errorStageSet[stage]
	return stage, ok
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Job represents one video processing job persisted in SQLite.
type Job struct {
	JobID           string
	FileName        string
	SourcePath      string
	Status          Status
	DurationSeconds float64
	VideoRef        string
	AudioRef        string
	ChunkCount      int
	ErrorStage      ErrorStage
	ErrorMessage    string

	// Final report mirror, populated by the combine stage.
	FinalSummary           string
	ActionItemsJSON        string
	TotalCost              float64
	CostBreakdownJSON      string
	UsageMetricsJSON       string
	PerformanceMetricsJSON string
	FinalResultRef         string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsProcessing reports whether the status reflects an in-flight stage.
func (s Status) IsProcessing() bool {
	_, ok := processingRollback[s]
	return ok
}

// SetFailed marks the job failed with a stage tag and bounded message.
func (j *Job) SetFailed(stage ErrorStage, message string) {
	j.Status = StatusFailed
	j.ErrorStage = stage
	j.ErrorMessage = truncateError(message)
}

// maxErrorMessageLength bounds persisted failure messages.
const maxErrorMessageLength = 1000

func truncateError(message string) string {
	message = strings.TrimSpace(message)
	if len(message) <= maxErrorMessageLength {
		return message
	}
	// Back off to a rune boundary so the persisted message stays valid UTF-8.
	limit := maxErrorMessageLength
	for limit > 0 && !utf8.RuneStart(message[limit]) {
		limit--
	}
	return message[:limit]
}
