package storage

import (
	"fmt"
	"path"

	"recap/internal/textutil"
)

// VideoKey locates the downloaded source video.
func VideoKey(jobID, fileName string) string {
	name := textutil.SanitizeFileName(fileName)
	if name == "" {
		name = "video"
	}
	return path.Join("meetings", jobID, "video", name)
}

// AudioKey locates the extracted mono audio track.
func AudioKey(jobID string) string {
	return path.Join("meetings", jobID, "audio", "audio.wav")
}

// ChunkKey locates one cut audio chunk.
func ChunkKey(jobID string, chunkID int) string {
	return path.Join("meetings", jobID, "chunks", fmt.Sprintf("chunk_%d.wav", chunkID))
}

// TranscriptKey locates one chunk's transcript document.
func TranscriptKey(jobID string, chunkID int) string {
	return path.Join("meetings", jobID, "transcripts", fmt.Sprintf("transcript_%d.json", chunkID))
}

// SummaryKey locates one chunk's summary document.
func SummaryKey(jobID string, chunkID int) string {
	return path.Join("meetings", jobID, "summaries", fmt.Sprintf("summary_%d.json", chunkID))
}

// FinalResultKey locates the merged result document.
func FinalResultKey(jobID string) string {
	return path.Join("meetings", jobID, "final_result.json")
}
