package chainclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// DefaultTimeout bounds a single provider request when none is configured.
const DefaultTimeout = 15 * time.Second

// Retrying wraps a Client so every call runs under a per-attempt timeout and
// transient failures are retried with backoff. Exhausting the retries yields
// an error wrapping ErrChainUnavailable.
type Retrying struct {
	inner   Client
	backoff *Backoff
	timeout time.Duration
}

// NewRetrying creates a retrying decorator around inner.
func NewRetrying(inner Client, backoff *Backoff, timeout time.Duration) *Retrying {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Retrying{inner: inner, backoff: backoff, timeout: timeout}
}

// Inner returns the wrapped Client.
func (r *Retrying) Inner() Client {
	return r.inner
}

func (r *Retrying) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := r.backoff.Retry(ctx, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return fn(attemptCtx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRetriesExhausted) {
		return fmt.Errorf("%s: %w: %w", op, ErrChainUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CurrentHeight returns the chain tip with retry.
func (r *Retrying) CurrentHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := r.call(ctx, "current height", func(ctx context.Context) error {
		var err error
		height, err = r.inner.CurrentHeight(ctx)
		return err
	})
	return height, err
}

// TransactionsForAddress fetches one history page with retry.
func (r *Retrying) TransactionsForAddress(ctx context.Context, addr types.Address, hr HeightRange, p Paging) (*Page, error) {
	var page *Page
	err := r.call(ctx, "address transactions", func(ctx context.Context) error {
		var err error
		page, err = r.inner.TransactionsForAddress(ctx, addr, hr, p)
		return err
	})
	return page, err
}

// ConfirmedBalance fetches the confirmed balance with retry.
func (r *Retrying) ConfirmedBalance(ctx context.Context, addr types.Address) (*Balance, error) {
	var bal *Balance
	err := r.call(ctx, "confirmed balance", func(ctx context.Context) error {
		var err error
		bal, err = r.inner.ConfirmedBalance(ctx, addr)
		return err
	})
	return bal, err
}

// LastHeaders fetches recent headers with retry.
func (r *Retrying) LastHeaders(ctx context.Context, count int) ([]Header, error) {
	var headers []Header
	err := r.call(ctx, "last headers", func(ctx context.Context) error {
		var err error
		headers, err = r.inner.LastHeaders(ctx, count)
		return err
	})
	return headers, err
}
