// internal/queue/retry.go
package queue

import (
	"math"
	"time"

	"cv-pipeline/internal/common/config"
	apperrors "cv-pipeline/internal/common/errors"
)

// RetryPolicy is whole-job retry with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
		Multiplier:  2,
		MaxDelay:    5 * time.Minute,
	}
}

// RetryPolicyFrom reads the queue section; maxAttempts overrides it when > 0.
func RetryPolicyFrom(cfg config.QueueConfig, maxAttempts int) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if cfg.BackoffDelay > 0 {
		p.Delay = time.Duration(cfg.BackoffDelay) * time.Millisecond
	}
	if cfg.BackoffMultiplier > 0 {
		p.Multiplier = cfg.BackoffMultiplier
	}
	if cfg.MaxBackoff > 0 {
		p.MaxDelay = time.Duration(cfg.MaxBackoff) * time.Millisecond
	}
	return p
}

// Backoff returns delay * multiplier^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.Delay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && (d > float64(p.MaxDelay) || math.IsInf(d, 0)) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ShouldRetry reports whether a failed attempt gets another delivery.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return apperrors.IsRetryable(err) && attempt < p.MaxAttempts
}

// Exhausted reports whether attempt is past the allowed number of deliveries.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}
