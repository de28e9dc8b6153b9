package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"recap/internal/services"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExtractAudioSuccess(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	runner := NewRunner(script, 0)
	if err := runner.ExtractAudio(context.Background(), "in.mp4", "out.wav"); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
}

func TestRunWrapsToolFailure(t *testing.T) {
	script := writeScript(t, "echo 'Invalid data found' >&2\nexit 1\n")
	runner := NewRunner(script, 0)
	err := runner.CutChunk(context.Background(), "audio.wav", "chunk.wav", 570, 600)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRunTimesOut(t *testing.T) {
	script := writeScript(t, "sleep 5\n")
	runner := NewRunner(script, 50*time.Millisecond)
	err := runner.ExtractAudio(context.Background(), "in.mp4", "out.wav")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(570); got != "570" {
		t.Errorf("formatSeconds(570) = %q", got)
	}
	if got := formatSeconds(12.5); got != "12.5" {
		t.Errorf("formatSeconds(12.5) = %q", got)
	}
}
