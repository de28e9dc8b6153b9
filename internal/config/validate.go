package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.ChunkSeconds < MinChunkSeconds {
		return fmt.Errorf("chunking.chunk_seconds must be at least %d", MinChunkSeconds)
	}
	if c.Chunking.OverlapSeconds < 0 {
		return errors.New("chunking.overlap_seconds must not be negative")
	}
	if c.Chunking.OverlapSeconds >= c.Chunking.ChunkSeconds {
		return errors.New("chunking.overlap_seconds must be smaller than chunking.chunk_seconds")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if strings.TrimSpace(c.Providers.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/recap/config.toml"
		}
		return fmt.Errorf("providers.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'recap config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ChunkWorkers < 1 {
		return errors.New("workflow.chunk_workers must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json", "auto":
		return nil
	default:
		return fmt.Errorf("logging.format must be console, json, or auto (got %q)", c.Logging.Format)
	}
}
