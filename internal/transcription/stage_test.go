package transcription

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"recap/internal/config"
	"recap/internal/meeting"
	"recap/internal/pricing"
	"recap/internal/services"
	"recap/internal/storage"
	"recap/internal/testsupport"
)

type stubClient struct {
	result Result
	errs   []error
	calls  int
}

func (c *stubClient) Transcribe(_ context.Context, audio io.Reader, _ string) (Result, error) {
	c.calls++
	_, _ = io.Copy(io.Discard, audio)
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return Result{}, err
		}
	}
	return c.result, nil
}

type fakeTimer struct {
	c chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(time.Duration) { t.c <- time.Now() }
func (t *fakeTimer) Stop()               {}
func (t *fakeTimer) C() <-chan time.Time { return t.c }

func newStage(t *testing.T, client Client) (*Stage, *storage.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := storage.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	stage := NewStage(client, store, pricing.NewCalculator(config.Pricing{}), nil)
	stage.retryTimer = newFakeTimer()
	return stage, store
}

func storedChunk(t *testing.T, store *storage.Store) meeting.Chunk {
	t.Helper()
	chunk := meeting.Chunk{
		ChunkID:    0,
		JobID:      "job-1",
		StartTime:  0,
		EndTime:    600,
		Duration:   600,
		StorageRef: storage.ChunkKey("job-1", 0),
	}
	if err := store.Put(chunk.StorageRef, strings.NewReader("wav-bytes")); err != nil {
		t.Fatalf("Put chunk failed: %v", err)
	}
	return chunk
}

func TestProcessChunkSuccess(t *testing.T) {
	client := &stubClient{result: Result{
		Text:     "we agreed to ship on Friday",
		Language: "en",
		Duration: 598.4,
		Segments: []Segment{{ID: 0, Start: 0, End: 4.5, Text: "we agreed"}},
	}}
	stage, store := newStage(t, client)
	chunk := storedChunk(t, store)

	result := stage.ProcessChunk(context.Background(), chunk)
	if result.Status != meeting.ResultSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if result.TextLength != len(client.result.Text) {
		t.Errorf("text length = %d", result.TextLength)
	}
	if result.Cost <= 0 {
		t.Errorf("cost = %v, want > 0", result.Cost)
	}
	if result.StorageRef != storage.TranscriptKey("job-1", 0) {
		t.Errorf("storage ref = %q", result.StorageRef)
	}

	var transcript meeting.Transcript
	if err := store.GetJSON(result.StorageRef, &transcript); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if transcript.Text != client.result.Text || len(transcript.Segments) != 1 {
		t.Fatalf("unexpected transcript: %#v", transcript)
	}
}

func TestProcessChunkRetriesThenSucceeds(t *testing.T) {
	client := &stubClient{
		result: Result{Text: "hello", Duration: 60},
		errs:   []error{&services.HTTPStatusError{StatusCode: 429, Body: "rate limited"}},
	}
	stage, store := newStage(t, client)
	chunk := storedChunk(t, store)

	result := stage.ProcessChunk(context.Background(), chunk)
	if result.Status != meeting.ResultSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", client.calls)
	}
}

func TestProcessChunkFailureIsIsolated(t *testing.T) {
	client := &stubClient{errs: []error{
		&services.HTTPStatusError{StatusCode: 429, Body: "rate limited"},
		&services.HTTPStatusError{StatusCode: 429, Body: "rate limited"},
		&services.HTTPStatusError{StatusCode: 429, Body: "rate limited"},
	}}
	stage, store := newStage(t, client)
	chunk := storedChunk(t, store)

	result := stage.ProcessChunk(context.Background(), chunk)
	if result.Status != meeting.ResultFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.Error == "" {
		t.Fatal("expected error message in result")
	}
	if result.ChunkID != chunk.ChunkID || result.JobID != chunk.JobID {
		t.Fatalf("result lost chunk identity: %#v", result)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", client.calls)
	}
}

func TestProcessChunkMissingAudio(t *testing.T) {
	stage, _ := newStage(t, &stubClient{result: Result{Text: "hi"}})
	chunk := meeting.Chunk{ChunkID: 1, JobID: "job-1", StorageRef: storage.ChunkKey("job-1", 1)}

	result := stage.ProcessChunk(context.Background(), chunk)
	if result.Status != meeting.ResultFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
}

func TestProcessChunkFallsBackToPlannedDuration(t *testing.T) {
	client := &stubClient{result: Result{Text: "short", Duration: 0}}
	stage, store := newStage(t, client)
	chunk := storedChunk(t, store)

	result := stage.ProcessChunk(context.Background(), chunk)
	if result.Duration != chunk.Duration {
		t.Fatalf("duration = %v, want %v", result.Duration, chunk.Duration)
	}
}
