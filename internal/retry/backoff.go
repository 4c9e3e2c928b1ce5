// Package retry retries chat-API calls with exponential backoff. The Slack
// Web API sheds load with 429s carrying a Retry-After; that hint wins over
// the computed backoff when present.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Config configures retry behavior with exponential backoff.
type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap on the computed delay
	Multiplier  float64       // backoff factor per retry
	Jitter      bool          // randomize delays to avoid thundering herd
}

// DefaultConfig returns defaults tuned for interactive chat calls: fail
// within a few seconds rather than holding an event handler open.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Do runs op until it succeeds, exhausts attempts, or hits a non-retryable
// error. The last error is returned verbatim.
func Do(ctx context.Context, cfg Config, op func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == cfg.MaxAttempts-1 {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		var rateLimited *slack.RateLimitedError
		if errors.As(lastErr, &rateLimited) && rateLimited.RetryAfter > 0 {
			delay = rateLimited.RetryAfter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoffDelay computes baseDelay * multiplier^attempt, capped, with up to
// 10% jitter either way.
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// Retryable reports whether an error is worth retrying. Rate limits and
// transient network failures qualify; auth errors and malformed requests do
// not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transient := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"502",
		"503",
		"504",
		"no such host",
		"network unreachable",
		"broken pipe",
	}
	for _, marker := range transient {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
