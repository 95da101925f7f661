package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openHPI/velo/pkg/logging"
)

var (
	log = logging.GetLogger("util")
	// ErrAttemptsExhausted is returned when every attempt failed with a retryable error.
	ErrAttemptsExhausted = errors.New("all attempts failed")
	// ErrInvalidAttempts is returned when less than one attempt is requested.
	ErrInvalidAttempts = errors.New("at least one attempt is required")
)

// RetryPredicate decides whether an error returned by an attempt is worth another attempt.
// It must not have side effects.
type RetryPredicate func(err error) bool

// RetryAttemptsContext executes the passed function up to attempts times without waiting in between.
// An error for which retryable returns false ends the retries and is returned unchanged.
// If all attempts fail with retryable errors, the last error is returned wrapped into ErrAttemptsExhausted.
// The context is only consulted between attempts; f is responsible for bounding a single attempt.
func RetryAttemptsContext(ctx context.Context, attempts int, retryable RetryPredicate, f func() error) error {
	if attempts < 1 {
		return ErrInvalidAttempts
	}

	permanent := false
	operation := func() error {
		err := f()
		if err != nil && !retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, _ time.Duration) {
		log.WithContext(ctx).WithError(err).Debug("retrying after error")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(attempts-1)), ctx)
	err := backoff.RetryNotify(operation, policy, notify)
	switch {
	case err == nil, permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("stopped retry due to: %w", err)
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, err)
	}
}
