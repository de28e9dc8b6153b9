package pricing

import (
	"os"
	"strconv"
	"sync"
	"time"

	"recap/internal/config"
)

// cacheDuration bounds how long resolved rates are reused.
const cacheDuration = time.Hour

// Fallback rates as of January 2026:
// Whisper $0.006 per minute, GPT-4o Mini $0.15/$0.60 per 1M tokens.
const (
	fallbackTranscribePerSecond = 0.0001
	fallbackPromptPer1K         = 0.00015
	fallbackCompletionPer1K     = 0.0006
)

// Environment overrides, consulted when the config leaves a rate unset.
const (
	envTranscribePerSecond = "WHISPER_PRICE_PER_SECOND"
	envPromptPer1K         = "GPT4O_MINI_INPUT_PRICE"
	envCompletionPer1K     = "GPT4O_MINI_OUTPUT_PRICE"
)

// Rates holds the resolved per-unit prices.
type Rates struct {
	TranscribePerSecond float64
	PromptPer1K         float64
	CompletionPer1K     float64
}

// Calculator resolves rates and computes call costs.
type Calculator struct {
	cfg config.Pricing
	now func() time.Time

	mu       sync.Mutex
	cached   Rates
	cachedAt time.Time
}

// NewCalculator builds a calculator using the provided pricing overrides.
func NewCalculator(cfg config.Pricing) *Calculator {
	return &Calculator{cfg: cfg, now: time.Now}
}

// Rates returns the effective prices, re-resolving at most once per hour.
func (c *Calculator) Rates() Rates {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.cachedAt.IsZero() && now.Sub(c.cachedAt) < cacheDuration {
		return c.cached
	}

	c.cached = Rates{
		TranscribePerSecond: resolveRate(c.cfg.TranscribePricePerSecond, envTranscribePerSecond, fallbackTranscribePerSecond),
		PromptPer1K:         resolveRate(c.cfg.ChatPromptPricePer1K, envPromptPer1K, fallbackPromptPer1K),
		CompletionPer1K:     resolveRate(c.cfg.ChatCompletionPricePer1K, envCompletionPer1K, fallbackCompletionPer1K),
	}
	c.cachedAt = now
	return c.cached
}

// TranscriptionCost prices an audio transcription by duration.
func (c *Calculator) TranscriptionCost(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds * c.Rates().TranscribePerSecond
}

// ChatCost prices a chat completion by token usage.
func (c *Calculator) ChatCost(promptTokens, completionTokens int) float64 {
	if promptTokens < 0 || completionTokens < 0 {
		return 0
	}
	rates := c.Rates()
	inputCost := float64(promptTokens) / 1000 * rates.PromptPer1K
	outputCost := float64(completionTokens) / 1000 * rates.CompletionPer1K
	return inputCost + outputCost
}

func resolveRate(configured float64, envName string, fallback float64) float64 {
	if configured > 0 {
		return configured
	}
	if raw := os.Getenv(envName); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			return value
		}
	}
	return fallback
}
