package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// TagStage marks err with the pipeline position responsible for it, so a
// failure router can record the position without inferring it from state.
func TagStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	return &stageTag{stage: stage, err: err}
}

// TaggedStage reports the pipeline position recorded on err, if any.
func TaggedStage(err error) (string, bool) {
	var tag *stageTag
	if errors.As(err, &tag) {
		return tag.stage, true
	}
	return "", false
}

type stageTag struct {
	stage string
	err   error
}

func (e *stageTag) Error() string { return e.err.Error() }
func (e *stageTag) Unwrap() error { return e.err }

// HTTPStatusError reports a non-2xx response from a remote provider. Clients
// return it unmodified so the retry layer can classify by status code.
// RetryAfter carries the provider's Retry-After hint; the retry schedule is
// fixed, so the hint is surfaced in retry logs only.
type HTTPStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether err represents a fault worth another attempt:
// rate limiting (429), a transient server fault (5xx or 408), or a timeout.
// Everything else, including context cancellation, is permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransient) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// maxPersistedErrorLength bounds error messages written to the job record.
const maxPersistedErrorLength = 1000

// TruncateMessage bounds an error message for persistence. The cut lands on
// a rune boundary so the stored string stays valid UTF-8.
func TruncateMessage(message string) string {
	message = strings.TrimSpace(message)
	if len(message) <= maxPersistedErrorLength {
		return message
	}
	limit := maxPersistedErrorLength
	for limit > 0 && !utf8.RuneStart(message[limit]) {
		limit--
	}
	return message[:limit]
}
