// Package resilience wraps outbound calls to flaky upstreams with bounded
// retries, exponential backoff, and optional provider failover. It is pure
// control flow around a caller-supplied operation: retries for one operation
// are strictly sequential, timeouts apply per attempt, and cancellation of
// the caller's context abandons the chain without further attempts.
package resilience

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Config.withDefaults when fields are zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Operation is an idempotent outbound request. Implementations must respect
// ctx; the retry loop derives a per-attempt deadline from Config.Timeout.
type Operation[T any] func(ctx context.Context) (T, error)

// Config bounds one provider's retry chain.
type Config struct {
	Provider    string        // label used in errors and logs
	MaxAttempts int           // total attempts against this provider
	BaseDelay   time.Duration // backoff: min(BaseDelay * 2^(n-1), MaxDelay)
	MaxDelay    time.Duration
	Timeout     time.Duration // per-attempt deadline; 0 means none
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Attempt records one try against a provider.
type Attempt struct {
	Provider string
	Number   int
	Delay    time.Duration // backoff slept before this attempt
	Err      error         // nil on success
}

// CallError is the final failure of a call chain. It identifies every
// provider and attempt that failed so callers never have to guess which
// upstream broke.
type CallError struct {
	Attempts []Attempt
	last     error
}

func (e *CallError) Error() string {
	var b strings.Builder
	b.WriteString("call failed")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s attempt %d: %v", a.Provider, a.Number, a.Err)
	}
	return b.String()
}

func (e *CallError) Unwrap() error { return e.last }

// Do runs op under cfg's retry policy. Transient failures are retried with
// exponential backoff up to MaxAttempts; fatal failures and caller
// cancellation surface immediately. The zero value of T is returned
// alongside any error; Do never substitutes a default result.
func Do[T any](ctx context.Context, cfg Config, op Operation[T]) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	res, attempts, err := run(ctx, cfg, op, nil)
	if err != nil {
		return zero, &CallError{Attempts: attempts, last: err}
	}
	return res, nil
}

// DoWithFallback runs primary under primaryCfg; if every attempt against the
// primary fails transiently, the same retry policy is applied once to
// fallback before the combined failure surfaces. A fatal primary failure
// surfaces immediately without invoking the fallback, since an error that
// cannot resolve by retrying will not resolve by switching providers either
// when it is the request itself that is malformed.
func DoWithFallback[T any](
	ctx context.Context,
	primaryCfg Config, primary Operation[T],
	fallbackCfg Config, fallback Operation[T],
) (T, error) {
	primaryCfg = primaryCfg.withDefaults()
	fallbackCfg = fallbackCfg.withDefaults()

	var zero T
	res, attempts, err := run(ctx, primaryCfg, primary, nil)
	if err == nil {
		return res, nil
	}

	if classify(err) != classTransient || fallback == nil {
		return zero, &CallError{Attempts: attempts, last: err}
	}

	res, attempts, err = run(ctx, fallbackCfg, fallback, attempts)
	if err != nil {
		return zero, &CallError{Attempts: attempts, last: err}
	}
	return res, nil
}

// run executes one provider's retry chain, appending to a prior attempt
// history. It returns the last error together with the full history.
func run[T any](ctx context.Context, cfg Config, op Operation[T], history []Attempt) (T, []Attempt, error) {
	var zero T
	var lastErr error

	for n := 1; n <= cfg.MaxAttempts; n++ {
		var delay time.Duration
		if n > 1 {
			delay = backoff(cfg, n-1)
			if err := sleep(ctx, delay); err != nil {
				history = append(history, Attempt{Provider: cfg.Provider, Number: n, Delay: delay, Err: err})
				return zero, history, err
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		res, err := op(attemptCtx)
		cancel()

		if err == nil {
			return res, history, nil
		}
		lastErr = err
		history = append(history, Attempt{Provider: cfg.Provider, Number: n, Delay: delay, Err: err})

		switch classify(err) {
		case classTransient:
			// Attempt timeouts show up as DeadlineExceeded; only retry
			// them when it was the attempt deadline, not the caller's.
			if ctx.Err() != nil {
				return zero, history, lastErr
			}
		default:
			return zero, history, lastErr
		}
	}

	return zero, history, lastErr
}

// backoff returns min(BaseDelay * 2^(attempt-1), MaxDelay) for attempt >= 1.
func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
