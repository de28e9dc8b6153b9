package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"recap/internal/logging"
	"recap/internal/metrics"
	"recap/internal/services"
)

const (
	// DefaultMaxAttempts bounds total tries per remote call.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the first retry sleep; each retry doubles it.
	DefaultBaseDelay = 2 * time.Second
)

// Options controls retry behavior for one remote call.
type Options struct {
	Logger    *slog.Logger
	StageName string
	Operation string

	// MaxAttempts and BaseDelay fall back to the package defaults when zero.
	MaxAttempts uint64
	BaseDelay   time.Duration

	// Timer overrides the backoff sleep source. Tests inject a fake timer
	// to observe the delay schedule without waiting.
	Timer backoff.Timer
}

// Run invokes call with the bounded-retry contract. An error is retried only
// when services.Retryable classifies it as rate limiting, a transient server
// fault, or a timeout; retries sleep 2s then 4s with the defaults. The error
// from the final attempt is returned otherwise unmodified.
func Run(ctx context.Context, opts Options, call func(context.Context) error) error {
	if call == nil {
		return fmt.Errorf("stage call unavailable: %s", opts.StageName)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(
		logging.String(logging.FieldStage, opts.StageName),
		logging.String("operation", opts.Operation),
	)

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = baseDelay
	expo.RandomizationFactor = 0
	expo.Multiplier = 2
	// Attempts bound the retry loop, not wall-clock time.
	expo.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !services.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		metrics.IncProviderRetry(opts.StageName)
		args := []any{
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		}
		// The schedule stays fixed; the provider's Retry-After hint is
		// recorded for diagnostics only.
		var statusErr *services.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			args = append(args, logging.Duration("retry_after_hint", statusErr.RetryAfter))
		}
		logger.Warn("retrying after transient failure", args...)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, maxAttempts-1), ctx)
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, opts.Timer)
	if err != nil {
		logger.Error(
			"stage call failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Int("attempts", attempt),
			logging.Error(err),
		)
		return err
	}
	return nil
}
