package queue_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"recap/internal/queue"
	"recap/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, "standup.mp4", "/videos/standup.mp4")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusInitiated {
		t.Fatalf("expected initiated status, got %s", job.Status)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.FileName != "standup.mp4" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestUpdatePersistsArtifactRefs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "allhands.mp4")
	job.Status = queue.StatusVideoDownloaded
	job.VideoRef = "meetings/" + job.JobID + "/video/allhands.mp4"
	job.DurationSeconds = 1500
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusVideoDownloaded {
		t.Fatalf("expected video_downloaded, got %s", fetched.Status)
	}
	if fetched.VideoRef != job.VideoRef {
		t.Fatalf("video ref not persisted: %q", fetched.VideoRef)
	}
	if fetched.DurationSeconds != 1500 {
		t.Fatalf("duration not persisted: %v", fetched.DurationSeconds)
	}
}

func TestFirstTerminalWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "retro.mp4")

	if err := store.MarkFailed(ctx, job.JobID, queue.StageTranscription, "rate limited"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	// A later writer must not overwrite the stored outcome.
	job.Status = queue.StatusCompleted
	err := store.Update(ctx, job)
	if !errors.Is(err, queue.ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}

	// A second failure report is silently dropped.
	if err := store.MarkFailed(ctx, job.JobID, queue.StageSummarization, "different error"); err != nil {
		t.Fatalf("second MarkFailed returned error: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.ErrorStage != queue.StageTranscription {
		t.Fatalf("expected transcription stage preserved, got %s", fetched.ErrorStage)
	}
	if fetched.ErrorMessage != "rate limited" {
		t.Fatalf("expected first error message preserved, got %q", fetched.ErrorMessage)
	}
	if fetched.CompletedAt == nil {
		t.Fatal("expected completed_at to be set on failure")
	}
}

func TestMarkFailedTruncatesLongMessages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "long.mp4")

	long := strings.Repeat("x", 4000)
	if err := store.MarkFailed(ctx, job.JobID, queue.StageAudioChunking, long); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(fetched.ErrorMessage) != 1000 {
		t.Fatalf("expected message truncated to 1000 chars, got %d", len(fetched.ErrorMessage))
	}
}

func TestMarkFailedTruncatesOnRuneBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "multibyte.mp4")

	// 400 three-byte runes put the byte limit mid-rune.
	long := strings.Repeat("€", 400)
	if err := store.MarkFailed(ctx, job.JobID, queue.StageTranscription, long); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(fetched.ErrorMessage) > 1000 {
		t.Fatalf("message length = %d, want <= 1000", len(fetched.ErrorMessage))
	}
	if !utf8.ValidString(fetched.ErrorMessage) {
		t.Fatal("persisted error message is not valid UTF-8")
	}
}

func TestParseErrorStage(t *testing.T) {
	stage, ok := queue.ParseErrorStage(" Result_Combination ")
	if !ok || stage != queue.StageResultCombination {
		t.Fatalf("ParseErrorStage = %q, %v", stage, ok)
	}
	if _, ok := queue.ParseErrorStage("imaginary"); ok {
		t.Fatal("unknown stage must not parse")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"downloading", queue.StatusDownloading, queue.StatusInitiated},
		{"extracting_audio", queue.StatusExtractingAudio, queue.StatusVideoDownloaded},
		{"processing", queue.StatusProcessing, queue.StatusAudioExtracted},
	}
	var ids []string
	for i, tc := range cases {
		job := testsupport.NewJob(t, store, fmt.Sprintf("meeting-%d.mp4", i))
		job.Status = tc.initialStatus
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.JobID)
	}

	affected, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if affected != int64(len(cases)) {
		t.Fatalf("expected %d jobs reset, got %d", len(cases), affected)
	}

	for i, tc := range cases {
		fetched, err := store.GetByID(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, fetched.Status)
		}
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "first.mp4")
	testsupport.NewJob(t, store, "second.mp4")

	next, err := store.NextForStatuses(ctx, queue.StatusInitiated)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.JobID != first.JobID {
		t.Fatalf("expected oldest job, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusProcessing)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no processing jobs, got %#v", none)
	}
}

func TestRetryFailedResetsErrorState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "flaky.mp4")
	if err := store.MarkFailed(ctx, job.JobID, queue.StageVideoDownload, "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	affected, err := store.RetryFailed(ctx, job.JobID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 job retried, got %d", affected)
	}

	fetched, err := store.GetByID(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusInitiated {
		t.Fatalf("expected initiated, got %s", fetched.Status)
	}
	if fetched.ErrorStage != "" || fetched.ErrorMessage != "" {
		t.Fatalf("expected error state cleared, got %q/%q", fetched.ErrorStage, fetched.ErrorMessage)
	}
}

func TestHealthGroupsStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewJob(t, store, "pending.mp4")
	_ = pending

	inFlight := testsupport.NewJob(t, store, "inflight.mp4")
	inFlight.Status = queue.StatusProcessing
	if err := store.Update(ctx, inFlight); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	failed := testsupport.NewJob(t, store, "failed.mp4")
	if err := store.MarkFailed(ctx, failed.JobID, queue.StageNotification, "webhook down"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Audio_Extracted "); !ok || status != queue.StatusAudioExtracted {
		t.Fatalf("expected audio_extracted, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
