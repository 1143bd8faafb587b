package chainclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrRetriesExhausted wraps the last error once every attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Backoff implements capped exponential backoff.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable decides whether a failed attempt is retried. Nil retries
	// every error.
	Retryable func(error) bool
	Logger    zerolog.Logger
}

// NewBackoff creates a Backoff that retries transient provider errors.
func NewBackoff(maxRetries int, baseDelay time.Duration) *Backoff {
	return &Backoff{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   30 * time.Second,
		Retryable:  IsTransient,
		Logger:     zerolog.Nop(),
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := b.BaseDelay
	for i := 0; i < attempt && delay < b.MaxDelay; i++ {
		delay *= 2
	}
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return delay
}

// Retry executes op until it succeeds, fails permanently, ctx ends or
// MaxRetries retries have been spent.
func (b *Backoff) Retry(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i <= b.MaxRetries; i++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.Retryable != nil && !b.Retryable(err) {
			return err
		}
		if i == b.MaxRetries {
			break
		}

		delay := b.Delay(i)
		b.Logger.Debug().
			Err(err).
			Int("attempt", i+1).
			Int("max_retries", b.MaxRetries).
			Dur("delay", delay).
			Msg("Retrying after error")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, b.MaxRetries+1, err)
}
