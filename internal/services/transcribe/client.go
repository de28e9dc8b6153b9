// Package transcribe wraps the hosted speech-to-text API.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"recap/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client issues transcription requests. Each call is a single attempt; the
// caller owns retry policy.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Segment is one timestamped piece of the transcript.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the verbose transcription payload.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Transcribe sends one audio chunk and returns the timestamped transcript.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, fileName string) (Result, error) {
	var result Result
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return result, services.Wrap(services.ErrConfiguration, "transcribe", "request", "api key required", nil)
	}
	if audio == nil {
		return result, services.Wrap(services.ErrValidation, "transcribe", "request", "audio reader required", nil)
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = "audio.wav"
	}

	// The multipart body is streamed through a pipe so large chunks never
	// sit in memory twice.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		err := writeForm(form, audio, fileName, c.cfg.Model)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, pr)
	if err != nil {
		return result, fmt.Errorf("transcribe request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("transcribe request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("transcribe request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return result, &services.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("transcribe request: decode response: %w", err)
	}
	result.Language = normalizeLanguage(result.Language)
	return result, nil
}

func writeForm(form *multipart.Writer, audio io.Reader, fileName, model string) error {
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return fmt.Errorf("copy audio: %w", err)
	}
	if err := form.WriteField("model", model); err != nil {
		return fmt.Errorf("write model field: %w", err)
	}
	if err := form.WriteField("response_format", "verbose_json"); err != nil {
		return fmt.Errorf("write response_format field: %w", err)
	}
	if err := form.WriteField("timestamp_granularities[]", "segment"); err != nil {
		return fmt.Errorf("write granularity field: %w", err)
	}
	return nil
}

// normalizeLanguage folds the provider's language labels onto BCP 47 tags
// where possible. The API returns English names ("english") for most audio
// but tags for some models; unrecognized values pass through lowercased.
func normalizeLanguage(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if tag, err := language.Parse(value); err == nil {
		return tag.String()
	}
	if tag, ok := languageNames[value]; ok {
		return tag
	}
	return value
}

// languageNames maps the English names the verbose payload uses for common
// meeting languages onto their tags.
var languageNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"hindi":      "hi",
	"russian":    "ru",
	"arabic":     "ar",
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// HealthCheck verifies the API key is present without issuing a request.
func (c *Client) HealthCheck(_ context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("transcribe health: api key required")
	}
	return nil
}
