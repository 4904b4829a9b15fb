// Package retry runs operations against remote chain nodes again after
// transient failures. The background dapp funding transfer uses it so a
// momentary node outage does not leave a freshly connected dapp unfunded.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sealvault/sealvault-core"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (including initial attempt)
	InitialDelay time.Duration // Initial delay between retries
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Multiplier for exponential backoff
}

// DefaultConfig is tuned for JSON-RPC calls to public chain nodes.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// IsRetryable determines if an error should trigger a retry.
type IsRetryable func(error) bool

// OnRetriable retries the transient error kind and stops on protocol and
// fatal errors, which a resend cannot fix.
func OnRetriable(err error) bool {
	var retriable *sealvault.RetriableError
	return errors.As(err, &retriable)
}

// WithRetry executes fn with exponential backoff between attempts. It stops
// early when the error is not retryable or the context ends, and returns the
// last error once attempts are exhausted.
func WithRetry[T any](
	ctx context.Context,
	config Config,
	isRetryable IsRetryable,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}

		// No sleep after the last attempt.
		if attempt < config.MaxAttempts-1 {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.Multiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
