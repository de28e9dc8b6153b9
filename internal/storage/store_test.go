package storage_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"recap/internal/services"
	"recap/internal/storage"
	"recap/internal/testsupport"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := storage.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestPutAndOpen(t *testing.T) {
	store := newStore(t)
	key := storage.ChunkKey("job-1", 0)

	if err := store.Put(key, strings.NewReader("audio-bytes")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !store.Exists(key) {
		t.Fatal("expected object to exist")
	}

	r, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestOpenMissingObject(t *testing.T) {
	store := newStore(t)
	_, err := store.Open(storage.TranscriptKey("job-1", 3))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestPutJSONRoundTrip(t *testing.T) {
	store := newStore(t)
	key := storage.SummaryKey("job-1", 2)

	type doc struct {
		Summary string `json:"summary"`
		ChunkID int    `json:"chunk_id"`
	}
	if err := store.PutJSON(key, doc{Summary: "short recap", ChunkID: 2}); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var got doc
	if err := store.GetJSON(key, &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got.Summary != "short recap" || got.ChunkID != 2 {
		t.Fatalf("unexpected document: %#v", got)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := newStore(t)
	for _, key := range []string{"", "../outside", "/abs/path"} {
		if err := store.Put(key, strings.NewReader("x")); !errors.Is(err, services.ErrValidation) {
			t.Errorf("key %q: expected validation error, got %v", key, err)
		}
	}
}

func TestRemoveJob(t *testing.T) {
	store := newStore(t)
	if err := store.Put(storage.AudioKey("job-1"), strings.NewReader("wav")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.RemoveJob("job-1"); err != nil {
		t.Fatalf("RemoveJob failed: %v", err)
	}
	if store.Exists(storage.AudioKey("job-1")) {
		t.Fatal("expected artifacts removed")
	}
}

func TestKeys(t *testing.T) {
	if got := storage.VideoKey("j1", "Team Sync: Weekly.mp4"); got != "meetings/j1/video/Team Sync- Weekly.mp4" {
		t.Errorf("VideoKey = %q", got)
	}
	if got := storage.ChunkKey("j1", 4); got != "meetings/j1/chunks/chunk_4.wav" {
		t.Errorf("ChunkKey = %q", got)
	}
	if got := storage.FinalResultKey("j1"); got != "meetings/j1/final_result.json" {
		t.Errorf("FinalResultKey = %q", got)
	}
}
