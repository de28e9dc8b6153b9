package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	// Best-effort .env overlay so provider keys can live next to the
	// working directory during development. Missing files are fine.
	_ = godotenv.Load()

	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeChunking()
	c.normalizeProviders()
	c.normalizeTools()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.MetricsBind = strings.TrimSpace(c.Paths.MetricsBind)
	return nil
}

func (c *Config) normalizeChunking() {
	if c.Chunking.ChunkSeconds <= 0 {
		c.Chunking.ChunkSeconds = defaultChunkSeconds
	}
	if c.Chunking.OverlapSeconds < 0 {
		c.Chunking.OverlapSeconds = defaultOverlapSeconds
	}
}

func (c *Config) normalizeProviders() {
	if c.Providers.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Providers.APIKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Providers.TranscribeBaseURL) == "" {
		c.Providers.TranscribeBaseURL = defaultTranscribeBaseURL
	}
	if strings.TrimSpace(c.Providers.TranscribeModel) == "" {
		c.Providers.TranscribeModel = defaultTranscribeModel
	}
	if strings.TrimSpace(c.Providers.ChatBaseURL) == "" {
		c.Providers.ChatBaseURL = defaultChatBaseURL
	}
	if strings.TrimSpace(c.Providers.ChatModel) == "" {
		c.Providers.ChatModel = defaultChatModel
	}
	if c.Providers.RequestTimeout <= 0 {
		c.Providers.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpegBinary) == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobeBinary) == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Tools.CommandTimeout <= 0 {
		c.Tools.CommandTimeout = defaultCommandTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ChunkWorkers <= 0 {
		c.Workflow.ChunkWorkers = defaultChunkWorkers
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.WebhookURL == "" {
		if value, ok := os.LookupEnv("RECAP_WEBHOOK_URL"); ok {
			c.Notifications.WebhookURL = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
}
