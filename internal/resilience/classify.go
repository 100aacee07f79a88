package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/predictos/predictbot/internal/domain"
)

// HTTPError is returned by outbound clients when the upstream responds with
// a non-2xx status. Carrying the status code lets the retry loop separate
// transient upstream failures from requests that can never succeed.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status indicates a failure that may resolve
// on retry: 5xx or rate limiting.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// classify buckets an operation error for the retry loop.
type class int

const (
	classTransient class = iota // retry within budget
	classFatal                  // surface immediately
	classAborted                // caller cancelled; never retry
)

// classify decides how the retry loop treats err. Timeouts, connection
// errors, 5xx, and rate limiting are transient; caller cancellation aborts;
// everything else (malformed responses, other 4xx, invariant violations) is
// fatal and spends no retry budget.
func classify(err error) class {
	if errors.Is(err, context.Canceled) {
		return classAborted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Retryable() {
			return classTransient
		}
		return classFatal
	}

	if errors.Is(err, domain.ErrRateLimited) {
		return classTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTransient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return classTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classTransient
	}

	return classFatal
}
