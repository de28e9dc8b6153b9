package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recap/internal/ingest"
	"recap/internal/queue"
	"recap/internal/services"
	"recap/internal/storage"
	"recap/internal/testsupport"
)

const probeScript = `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"1500.25","size":"2048"}}
JSON
`

func newStage(t *testing.T, probeBody string) (*ingest.Stage, *storage.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("ffprobe", probeBody))
	store, err := storage.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return ingest.NewStage(cfg, store, nil), store
}

func TestPrepareRejectsBadSources(t *testing.T) {
	stage, _ := newStage(t, probeScript)

	empty := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	cases := []struct {
		name   string
		source string
	}{
		{"no source path", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.mp4")},
		{"empty file", empty},
		{"directory", t.TempDir()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &queue.Job{JobID: "job-1", FileName: "meeting.mp4", SourcePath: tc.source}
			err := stage.Prepare(context.Background(), job)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestExecuteStoresVideoAndRecordsDuration(t *testing.T) {
	stage, store := newStage(t, probeScript)

	source := filepath.Join(t.TempDir(), "All Hands.mp4")
	testsupport.WriteFile(t, source, 4096)

	job := &queue.Job{JobID: "job-1", FileName: "All Hands.mp4", SourcePath: source, Status: queue.StatusDownloading}
	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if job.VideoRef == "" || !store.Exists(job.VideoRef) {
		t.Fatalf("video artifact not stored, ref = %q", job.VideoRef)
	}
	if job.DurationSeconds != 1500.25 {
		t.Errorf("DurationSeconds = %v, want 1500.25", job.DurationSeconds)
	}
	if job.Status != queue.StatusVideoDownloaded {
		t.Errorf("Status = %s, want %s", job.Status, queue.StatusVideoDownloaded)
	}
}

func TestExecuteFailsWhenProbeReportsNoDuration(t *testing.T) {
	stage, _ := newStage(t, "printf '{\"streams\":[],\"format\":{}}'\n")

	source := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, source, 128)

	job := &queue.Job{JobID: "job-1", FileName: "clip.mp4", SourcePath: source}
	err := stage.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
