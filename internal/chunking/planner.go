package chunking

import (
	"fmt"
	"math"

	"recap/internal/meeting"
	"recap/internal/services"
)

// MinChunkSeconds is the shortest chunk worth transcribing. Candidates below
// this are dropped from the plan.
const MinChunkSeconds = 10

// Options control the chunk plan geometry.
type Options struct {
	// ChunkSeconds is the nominal chunk length L.
	ChunkSeconds int
	// OverlapSeconds is the overlap O carried into each chunk after the first.
	OverlapSeconds int
}

// Plan computes the ordered chunk windows for a recording of totalSeconds.
//
// Chunk 0 starts at zero; chunk i starts at i*L - O so each boundary is
// re-heard with O seconds of context. The final chunk absorbs the remainder
// and is dropped when shorter than MinChunkSeconds. An empty plan is a
// validation error: the recording is too short to process.
func Plan(jobID string, totalSeconds float64, opts Options) ([]meeting.Chunk, error) {
	if opts.ChunkSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "plan", fmt.Sprintf("chunk length must be positive, got %d", opts.ChunkSeconds), nil)
	}
	if opts.OverlapSeconds < 0 || opts.OverlapSeconds >= opts.ChunkSeconds {
		return nil, services.Wrap(services.ErrValidation, "chunking", "plan", fmt.Sprintf("overlap %d must be in [0, chunk length)", opts.OverlapSeconds), nil)
	}
	if totalSeconds < 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "plan", fmt.Sprintf("duration must be non-negative, got %v", totalSeconds), nil)
	}

	chunkLen := float64(opts.ChunkSeconds)
	overlap := float64(opts.OverlapSeconds)
	candidates := int(math.Ceil(totalSeconds / chunkLen))

	var chunks []meeting.Chunk
	for i := 0; i < candidates; i++ {
		start := 0.0
		if i > 0 {
			start = float64(i)*chunkLen - overlap
		}
		duration := math.Min(chunkLen, totalSeconds-start)
		if duration < MinChunkSeconds {
			continue
		}
		chunks = append(chunks, meeting.Chunk{
			ChunkID:   i,
			JobID:     jobID,
			StartTime: start,
			EndTime:   start + duration,
			Duration:  duration,
		})
	}

	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "plan", fmt.Sprintf("recording too short to chunk (%.1fs)", totalSeconds), nil)
	}
	return chunks, nil
}
