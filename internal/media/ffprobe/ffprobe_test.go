package ffprobe

import (
	"encoding/json"
	"testing"
)

func TestResultAccessors(t *testing.T) {
	payload := `{
		"streams": [
			{"index": 0, "codec_name": "h264", "codec_type": "video"},
			{"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2},
			{"index": 2, "codec_name": "aac", "codec_type": "Audio"}
		],
		"format": {"filename": "standup.mp4", "nb_streams": 3, "duration": "1500.25", "size": "2048"}
	}`
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := result.AudioStreamCount(); got != 2 {
		t.Errorf("AudioStreamCount() = %d, want 2", got)
	}
	if got := result.DurationSeconds(); got != 1500.25 {
		t.Errorf("DurationSeconds() = %v, want 1500.25", got)
	}
	if got := result.SizeBytes(); got != 2048 {
		t.Errorf("SizeBytes() = %d, want 2048", got)
	}
}

func TestResultAccessorsToleratesMissingFields(t *testing.T) {
	var result Result
	if got := result.DurationSeconds(); got != 0 {
		t.Errorf("DurationSeconds() = %v, want 0", got)
	}
	if got := result.SizeBytes(); got != 0 {
		t.Errorf("SizeBytes() = %d, want 0", got)
	}
	result.Format.Duration = "not-a-number"
	if got := result.DurationSeconds(); got != 0 {
		t.Errorf("DurationSeconds() with garbage = %v, want 0", got)
	}
}
