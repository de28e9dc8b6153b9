package processing_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recap/internal/meeting"
	"recap/internal/processing"
	"recap/internal/queue"
	"recap/internal/services"
	"recap/internal/storage"
	"recap/internal/testsupport"
)

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	failFor map[int]bool

	active     atomic.Int32
	maxActive  atomic.Int32
	settleTime time.Duration
}

func (f *fakeTranscriber) ProcessChunk(ctx context.Context, chunk meeting.Chunk) meeting.TranscriptResult {
	current := f.active.Add(1)
	for {
		observed := f.maxActive.Load()
		if current <= observed || f.maxActive.CompareAndSwap(observed, current) {
			break
		}
	}
	if f.settleTime > 0 {
		time.Sleep(f.settleTime)
	}
	defer f.active.Add(-1)

	f.mu.Lock()
	f.calls++
	fail := f.failFor[chunk.ChunkID]
	f.mu.Unlock()

	result := meeting.TranscriptResult{
		ChunkID:   chunk.ChunkID,
		JobID:     chunk.JobID,
		StartTime: chunk.StartTime,
		EndTime:   chunk.EndTime,
		Duration:  chunk.Duration,
	}
	if fail {
		result.Status = meeting.ResultFailed
		result.Error = "provider returned status 429"
		return result
	}
	result.Status = meeting.ResultSuccess
	result.Cost = 0.0012
	result.ProcessingTimeSeconds = 1.5
	return result
}

type fakeSummarizer struct {
	store *storage.Store
}

func (f *fakeSummarizer) ProcessTranscript(ctx context.Context, transcript meeting.TranscriptResult) meeting.SummaryResult {
	result := meeting.SummaryResult{ChunkID: transcript.ChunkID, JobID: transcript.JobID}
	if transcript.Status != meeting.ResultSuccess {
		result.Status = meeting.ResultSkipped
		result.Error = "transcription failed"
		return result
	}

	timeRange := meeting.Chunk{StartTime: transcript.StartTime, EndTime: transcript.EndTime}.TimeRange()
	doc := meeting.ChunkSummary{
		ChunkID:   transcript.ChunkID,
		JobID:     transcript.JobID,
		TimeRange: timeRange,
		Summary:   fmt.Sprintf("discussion part %d", transcript.ChunkID),
		ActionItems: []meeting.ActionItem{{
			Action:  fmt.Sprintf("Follow up on item %d", transcript.ChunkID),
			Owner:   meeting.UnassignedOwner,
			DueDate: meeting.UnspecifiedDue,
		}},
	}
	key := storage.SummaryKey(transcript.JobID, transcript.ChunkID)
	if err := f.store.PutJSON(key, doc); err != nil {
		result.Status = meeting.ResultFailed
		result.Error = err.Error()
		return result
	}
	result.StorageRef = key
	result.TimeRange = timeRange
	result.ActionItemsCount = len(doc.ActionItems)
	result.Cost = 0.0005
	result.ProcessingTimeSeconds = 0.8
	result.Status = meeting.ResultSuccess
	return result
}

func newFixture(t *testing.T, workers int, failFor map[int]bool) (*processing.Stage, *storage.Store, *fakeTranscriber) {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithChunking(600, 30),
		testsupport.WithStubScript("ffmpeg", "exit 0\n"))
	cfg.Workflow.ChunkWorkers = workers

	store, err := storage.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	transcriber := &fakeTranscriber{failFor: failFor}
	stage := processing.NewStage(cfg, store, transcriber, &fakeSummarizer{store: store}, nil)
	return stage, store, transcriber
}

func storedAudioJob(t *testing.T, store *storage.Store, duration float64) *queue.Job {
	t.Helper()
	source := filepath.Join(t.TempDir(), "audio.wav")
	testsupport.WriteFile(t, source, 2048)
	key := storage.AudioKey("job-1")
	if err := store.PutFile(key, source); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	return &queue.Job{
		JobID:           "job-1",
		FileName:        "All Hands.mp4",
		AudioRef:        key,
		DurationSeconds: duration,
		Status:          queue.StatusProcessing,
	}
}

func TestPrepareRequiresAudioAndDuration(t *testing.T) {
	stage, store, _ := newFixture(t, 2, nil)

	err := stage.Prepare(context.Background(), &queue.Job{JobID: "job-1", DurationSeconds: 100})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing audio: err = %v, want validation error", err)
	}

	job := storedAudioJob(t, store, 0)
	err = stage.Prepare(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing duration: err = %v, want validation error", err)
	}
}

func TestExecuteCompletesJob(t *testing.T) {
	stage, store, transcriber := newFixture(t, 2, nil)
	job := storedAudioJob(t, store, 1500)

	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if job.Status != queue.StatusCompleted {
		t.Fatalf("Status = %s, want %s", job.Status, queue.StatusCompleted)
	}
	if job.ChunkCount != 3 {
		t.Errorf("ChunkCount = %d, want 3", job.ChunkCount)
	}
	if transcriber.calls != 3 {
		t.Errorf("transcriber calls = %d, want 3", transcriber.calls)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if job.FinalResultRef != storage.FinalResultKey("job-1") {
		t.Errorf("FinalResultRef = %q", job.FinalResultRef)
	}
	if parts := strings.Split(job.FinalSummary, "\n\n"); len(parts) != 3 {
		t.Errorf("narrative parts = %d, want 3", len(parts))
	}
	if job.TotalCost != 0.0051 {
		t.Errorf("TotalCost = %v, want 0.0051", job.TotalCost)
	}

	var items []meeting.ActionItem
	if err := json.Unmarshal([]byte(job.ActionItemsJSON), &items); err != nil {
		t.Fatalf("decode action items: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("action items = %d, want 3", len(items))
	}

	var persisted meeting.FinalResult
	if err := store.GetJSON(job.FinalResultRef, &persisted); err != nil {
		t.Fatalf("final result not persisted: %v", err)
	}
	if persisted.TotalChunksProcessed != 3 {
		t.Errorf("TotalChunksProcessed = %d, want 3", persisted.TotalChunksProcessed)
	}
}

func TestExecuteToleratesPartialChunkFailure(t *testing.T) {
	stage, store, _ := newFixture(t, 2, map[int]bool{1: true})
	job := storedAudioJob(t, store, 1500)

	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.Status != queue.StatusCompleted {
		t.Fatalf("Status = %s, want %s", job.Status, queue.StatusCompleted)
	}

	var persisted meeting.FinalResult
	if err := store.GetJSON(job.FinalResultRef, &persisted); err != nil {
		t.Fatalf("final result not persisted: %v", err)
	}
	if persisted.TotalChunksProcessed != 2 {
		t.Errorf("TotalChunksProcessed = %d, want 2", persisted.TotalChunksProcessed)
	}
	if strings.Contains(persisted.FinalSummary, "discussion part 1") {
		t.Errorf("failed chunk leaked into narrative: %q", persisted.FinalSummary)
	}
}

func TestExecuteFailsWhenAllChunksFail(t *testing.T) {
	stage, store, _ := newFixture(t, 2, map[int]bool{0: true, 1: true, 2: true})
	job := storedAudioJob(t, store, 1500)

	err := stage.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if job.Status == queue.StatusCompleted {
		t.Error("job must not complete without successful chunks")
	}
	if tag, ok := services.TaggedStage(err); !ok || tag != string(queue.StageResultCombination) {
		t.Errorf("failure stage tag = %q (%v), want %s", tag, ok, queue.StageResultCombination)
	}
}

func TestFanOutHonorsWorkerLimit(t *testing.T) {
	stage, store, transcriber := newFixture(t, 1, nil)
	transcriber.settleTime = 5 * time.Millisecond
	job := storedAudioJob(t, store, 1500)

	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if max := transcriber.maxActive.Load(); max != 1 {
		t.Errorf("max concurrent transcriptions = %d, want 1", max)
	}
}
