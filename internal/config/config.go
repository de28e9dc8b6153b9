package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// DataDir is the object-storage root holding per-job artifacts
	// (chunks, transcripts, summaries, final reports).
	DataDir string `toml:"data_dir"`
	// WorkDir holds scratch files (downloaded videos, extracted audio).
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
	// MetricsBind is the address the daemon serves Prometheus metrics on.
	// Empty disables the metrics endpoint.
	MetricsBind string `toml:"metrics_bind"`
}

// Chunking controls how the audio stream is split into work units.
type Chunking struct {
	// ChunkSeconds is the nominal chunk length. Default: 600.
	ChunkSeconds int `toml:"chunk_seconds"`
	// OverlapSeconds is the overlap between consecutive chunks. Default: 30.
	OverlapSeconds int `toml:"overlap_seconds"`
}

// Providers configures the remote speech-to-text and text-generation APIs.
type Providers struct {
	// APIKey authenticates both providers. Usually left empty here and
	// supplied via the OPENAI_API_KEY environment variable (or a .env file).
	APIKey            string `toml:"api_key"`
	TranscribeBaseURL string `toml:"transcribe_base_url"`
	TranscribeModel   string `toml:"transcribe_model"`
	ChatBaseURL       string `toml:"chat_base_url"`
	ChatModel         string `toml:"chat_model"`
	// RequestTimeout is the hard per-call timeout in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// Pricing overrides the static fallback provider rates. Zero values fall
// back to the built-in January 2026 list prices.
type Pricing struct {
	TranscribePricePerSecond float64 `toml:"transcribe_price_per_second"`
	ChatPromptPricePer1K     float64 `toml:"chat_prompt_price_per_1k"`
	ChatCompletionPricePer1K float64 `toml:"chat_completion_price_per_1k"`
}

// Tools configures the external media binaries invoked as black boxes.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	// CommandTimeout bounds each subprocess invocation in seconds.
	CommandTimeout int `toml:"command_timeout"`
}

// Workflow contains daemon scheduling settings.
type Workflow struct {
	// QueuePollInterval is the idle polling interval in seconds.
	QueuePollInterval int `toml:"queue_poll_interval"`
	// ChunkWorkers bounds concurrent per-chunk transcribe/summarize units.
	ChunkWorkers int `toml:"chunk_workers"`
}

// Notifications configures the outbound report webhook.
type Notifications struct {
	// WebhookURL is a Slack-compatible incoming webhook. Usually supplied
	// via the RECAP_WEBHOOK_URL environment variable. Empty disables
	// notifications.
	WebhookURL string `toml:"webhook_url"`
	// RequestTimeout is the webhook request timeout in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console, json, or auto
}

// Config encapsulates all configuration values for recap.
//
// Configuration sections by subsystem:
//   - Paths: data/work/log directories and the metrics bind address
//   - Chunking: chunk length and overlap
//   - Providers: transcription and chat provider endpoints and credentials
//   - Pricing: provider rate overrides for cost accounting
//   - Tools: ffmpeg/ffprobe binaries and subprocess timeouts
//   - Workflow: daemon polling and fan-out concurrency
//   - Notifications: report webhook settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Chunking      Chunking      `toml:"chunking"`
	Providers     Providers     `toml:"providers"`
	Pricing       Pricing       `toml:"pricing"`
	Tools         Tools         `toml:"tools"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("recap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
