package chainclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrChainUnavailable means the node or explorer could not be reached
	// after all retries.
	ErrChainUnavailable = errors.New("chain provider unavailable")
	// ErrBadResponse means the provider answered with a body that could not
	// be decoded. It is never retried.
	ErrBadResponse = errors.New("malformed provider response")
)

// HTTPError is a non-2xx provider response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is worth retrying: network failures,
// per-attempt timeouts, 5xx and 429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBadResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
