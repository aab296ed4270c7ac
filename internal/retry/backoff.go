package retry

import (
	"context"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Config controls exponential backoff behavior.
type Config struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
	Multiplier float64       `json:"multiplier"`
	Jitter     bool          `json:"jitter"`
	LogRetries bool          `json:"log_retries"`
}

// Result reports what happened across all attempts.
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
}

// DefaultConfig returns sensible defaults for outbound HTTP calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		LogRetries: true,
	}
}

// LLMConfig returns a configuration tuned for LLM requests, which are slower
// and rate-limited more aggressively than ordinary HTTP endpoints.
func LLMConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.5,
		Jitter:     true,
		LogRetries: true,
	}
}

// Do executes operation with exponential backoff until it succeeds, the
// retry budget is exhausted, or the context is cancelled.
func Do(ctx context.Context, config Config, label string, operation func() error) Result {
	startTime := time.Now()
	result := Result{}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		// Honor cancellation even when the backoff delays are short enough
		// that the sleeping select never observes it.
		if err := ctx.Err(); err != nil {
			result.LastError = err
			result.TotalDuration = time.Since(startTime)
			return result
		}

		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries && attempt > 0 {
				log.Printf("[INFO] retry: %s succeeded after %d retries (%v)", label, attempt, result.TotalDuration)
			}
			return result
		}

		result.LastError = err

		if attempt >= config.MaxRetries {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				log.Printf("[ERROR] retry: %s failed after %d attempts (%v): %v",
					label, result.Attempts, result.TotalDuration, err)
			}
			return result
		}

		if !IsRetryable(err) {
			result.TotalDuration = time.Since(startTime)
			if config.LogRetries {
				log.Printf("[ERROR] retry: %s failed with non-retryable error: %v", label, err)
			}
			return result
		}

		delay := backoffDelay(config, attempt)
		if config.LogRetries {
			log.Printf("[INFO] retry: %s failed (attempt %d/%d): %v; waiting %v",
				label, attempt+1, config.MaxRetries+1, err, delay)
		}

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		case <-time.After(delay):
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// backoffDelay computes baseDelay * multiplier^attempt capped at MaxDelay,
// with up to 10% jitter to avoid synchronized retries.
func backoffDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}
	return time.Duration(delay)
}

// IsRetryable reports whether an error looks transient. Matching on error
// text is crude but the HTTP clients involved do not expose typed errors
// for most of these conditions.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	retryable := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"no such host",
		"network unreachable",
		"broken pipe",
	}
	for _, s := range retryable {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
