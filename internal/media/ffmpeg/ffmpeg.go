// Package ffmpeg shells out to ffmpeg for audio extraction and chunk cutting.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"recap/internal/services"
)

// DefaultCommandTimeout bounds a single ffmpeg invocation.
const DefaultCommandTimeout = 120 * time.Second

// Runner executes ffmpeg commands with a shared binary and timeout.
type Runner struct {
	binary  string
	timeout time.Duration
}

// NewRunner builds a runner. Empty binary falls back to "ffmpeg" on PATH;
// a non-positive timeout falls back to DefaultCommandTimeout.
func NewRunner(binary string, timeout time.Duration) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Runner{binary: binary, timeout: timeout}
}

// ExtractAudio pulls the audio track from a video into a 16kHz mono WAV,
// the layout the transcription provider works best with.
func (r *Runner) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	}
	return r.run(ctx, "extract_audio", args)
}

// CutChunk copies one window of an audio file into a standalone chunk.
// The codec is copied rather than re-encoded to keep cutting fast.
func (r *Runner) CutChunk(ctx context.Context, audioPath, chunkPath string, startSeconds, durationSeconds float64) error {
	args := []string{
		"-i", audioPath,
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-acodec", "copy",
		"-y",
		chunkPath,
	}
	return r.run(ctx, "cut_chunk", args)
}

func (r *Runner) run(ctx context.Context, operation string, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "media", operation, fmt.Sprintf("ffmpeg timed out after %s", r.timeout), nil)
		}
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "media", operation, detail, err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
