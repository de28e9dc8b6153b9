package summarization

import (
	"fmt"
	"strings"

	"recap/internal/meeting"
)

// systemPrompt frames the assistant role for every summarization call.
const systemPrompt = "You are a helpful assistant that summarizes meeting transcripts and extracts action items."

const promptTemplate = `You are analyzing a segment of a business meeting transcript with timestamps.

TRANSCRIPT (Time range: %s):
%s

Your task:
1. Write a concise 2-3 sentence summary of the main discussion points in this segment
2. Extract all action items mentioned (tasks, follow-ups, assignments)

Format your response EXACTLY as follows:

SUMMARY:
[Your 2-3 sentence summary here]

ACTION ITEMS:
- Action: [specific task] | Owner: [person name if mentioned, otherwise "Unassigned"] | Due: [date if mentioned, otherwise "Not specified"]
- Action: [specific task] | Owner: [person name if mentioned, otherwise "Unassigned"] | Due: [date if mentioned, otherwise "Not specified"]

If there are no action items, write:
ACTION ITEMS:
None

Important:
- Be specific and concise
- Only include actual action items that were discussed
- Preserve important details like names, dates, and specific requirements
- Use the Owner and Due format consistently`

// buildPrompt renders the user prompt for one transcript window.
func buildPrompt(timeRange, transcriptText string) string {
	return fmt.Sprintf(promptTemplate, timeRange, transcriptText)
}

// formatTranscript renders a transcript as timestamped lines for the prompt.
// Transcripts without segments fall back to the raw text.
func formatTranscript(transcript meeting.Transcript) string {
	if len(transcript.Segments) == 0 {
		return transcript.Text
	}
	lines := make([]string, 0, len(transcript.Segments))
	for _, segment := range transcript.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", meeting.FormatTimestamp(segment.Start), text))
	}
	if len(lines) == 0 {
		return transcript.Text
	}
	return strings.Join(lines, "\n")
}
