package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recap/internal/config"
	"recap/internal/meeting"
)

const userAgent = "Recap-Go/0.1.0"

// Slack rejects section text past a few thousand characters.
const maxSectionLength = 2000

// Event identifies a job lifecycle transition worth announcing.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
)

// Payload carries event-specific fields. Recognized keys per event are
// documented on the builder functions below.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by a Slack incoming webhook
// when configured. When no webhook URL is configured, a noop implementation
// is returned.
func NewService(cfg *config.Config) Service {
	webhook := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if webhook == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &slackService{
		endpoint: webhook,
		client:   &http.Client{Timeout: timeout},
	}
}

type slackService struct {
	endpoint string
	client   *http.Client
}

type block struct {
	Type   string `json:"type"`
	Text   *text  `json:"text,omitempty"`
	Fields []text `json:"fields,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks,omitempty"`
}

func (s *slackService) Publish(ctx context.Context, event Event, payload Payload) error {
	var msg message
	switch event {
	case EventJobCompleted:
		msg = completedMessage(payload)
	case EventJobFailed:
		msg = failedMessage(payload)
	default:
		return fmt.Errorf("unknown notification event %q", event)
	}
	return s.send(ctx, msg)
}

// completedMessage renders the final report announcement. Recognized payload
// keys: meeting_name, duration, summary, action_items ([]meeting.ActionItem).
func completedMessage(payload Payload) message {
	name := stringField(payload, "meeting_name", "Unknown Meeting")
	duration := stringField(payload, "duration", "unknown")
	summary := stringField(payload, "summary", "")
	items, _ := payload["action_items"].([]meeting.ActionItem)

	return message{
		Text: fmt.Sprintf("Meeting Intelligence Report: %s", name),
		Blocks: []block{
			{Type: "header", Text: &text{Type: "plain_text", Text: "Meeting Intelligence Report"}},
			{Type: "section", Fields: []text{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Meeting:*\n%s", name)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Duration:*\n%s", duration)},
			}},
			{Type: "divider"},
			{Type: "section", Text: &text{Type: "mrkdwn",
				Text: truncate(fmt.Sprintf("*Summary:*\n%s", summary), maxSectionLength)}},
			{Type: "divider"},
			{Type: "section", Text: &text{Type: "mrkdwn",
				Text: truncate(fmt.Sprintf("*Action Items:*\n%s", formatActionItems(items)), maxSectionLength)}},
		},
	}
}

// failedMessage renders a processing failure. Recognized payload keys:
// file_name, stage, error.
func failedMessage(payload Payload) message {
	name := stringField(payload, "file_name", "unknown file")
	stage := stringField(payload, "stage", "unknown")
	detail := stringField(payload, "error", "no detail recorded")

	return message{
		Text: fmt.Sprintf("Meeting processing failed: %s", name),
		Blocks: []block{
			{Type: "header", Text: &text{Type: "plain_text", Text: "Meeting Processing Failed"}},
			{Type: "section", Fields: []text{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Meeting:*\n%s", name)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Failed Stage:*\n%s", stage)},
			}},
			{Type: "section", Text: &text{Type: "mrkdwn",
				Text: truncate(fmt.Sprintf("*Error:*\n%s", detail), maxSectionLength)}},
		},
	}
}

func formatActionItems(items []meeting.ActionItem) string {
	if len(items) == 0 {
		return "No action items identified"
	}
	var builder strings.Builder
	for i, item := range items {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, item.Action)
		fmt.Fprintf(&builder, "   Owner: %s | Due: %s\n", item.Owner, item.DueDate)
		if item.MentionedAt != "" {
			fmt.Fprintf(&builder, "   Mentioned: %s\n", item.MentionedAt)
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

func stringField(payload Payload, key, fallback string) string {
	switch v := payload[key].(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	}
	return fallback
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func (s *slackService) send(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
