package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
)

func fastCfg(provider string) Config {
	return Config{
		Provider:    provider,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastCfg("grok"), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastCfg("grok"), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &HTTPError{StatusCode: 503, Body: "unavailable"}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 3, calls, "exactly maxAttempts calls: two transient failures then success")
}

func TestDoFatalStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastCfg("gamma"), func(ctx context.Context) (int, error) {
		calls++
		return 0, &HTTPError{StatusCode: 404, Body: "no such market"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "fatal errors must not consume retry budget")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Len(t, callErr.Attempts, 1)
	assert.Equal(t, "gamma", callErr.Attempts[0].Provider)
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastCfg("grok"), func(ctx context.Context) (int, error) {
		calls++
		return 0, &HTTPError{StatusCode: 500, Body: "boom"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Len(t, callErr.Attempts, 3)
	assert.Contains(t, callErr.Error(), "grok attempt 3")
}

func TestFallbackNotInvokedWhenPrimarySucceedsWithinBudget(t *testing.T) {
	primaryCalls, fallbackCalls := 0, 0
	cfg := fastCfg("grok")

	res, err := DoWithFallback(context.Background(),
		cfg, func(ctx context.Context) (string, error) {
			primaryCalls++
			if primaryCalls < cfg.MaxAttempts {
				return "", &HTTPError{StatusCode: 502, Body: "bad gateway"}
			}
			return "primary", nil
		},
		fastCfg("openai"), func(ctx context.Context) (string, error) {
			fallbackCalls++
			return "fallback", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "primary", res)
	assert.Equal(t, cfg.MaxAttempts, primaryCalls)
	assert.Zero(t, fallbackCalls, "fallback must not run when the primary eventually succeeds")
}

func TestFallbackRunsAfterPrimaryExhausted(t *testing.T) {
	fallbackCalls := 0
	res, err := DoWithFallback(context.Background(),
		fastCfg("grok"), func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 500, Body: "down"}
		},
		fastCfg("openai"), func(ctx context.Context) (string, error) {
			fallbackCalls++
			return "fallback", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "fallback", res)
	assert.Equal(t, 1, fallbackCalls)
}

func TestFallbackSkippedOnFatalPrimary(t *testing.T) {
	fallbackCalls := 0
	_, err := DoWithFallback(context.Background(),
		fastCfg("grok"), func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 401, Body: "bad key"}
		},
		fastCfg("openai"), func(ctx context.Context) (string, error) {
			fallbackCalls++
			return "fallback", nil
		},
	)
	require.Error(t, err)
	assert.Zero(t, fallbackCalls)
}

func TestFallbackFailureCarriesBothChains(t *testing.T) {
	_, err := DoWithFallback(context.Background(),
		fastCfg("grok"), func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 500, Body: "down"}
		},
		fastCfg("openai"), func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 503, Body: "also down"}
		},
	)
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Len(t, callErr.Attempts, 6)
	assert.Equal(t, "grok", callErr.Attempts[0].Provider)
	assert.Equal(t, "openai", callErr.Attempts[5].Provider)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := Config{Provider: "grok", MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	_, err := Do(ctx, cfg, func(ctx context.Context) (int, error) {
		calls++
		cancel() // cancel while the loop would otherwise back off and retry
		return 0, &HTTPError{StatusCode: 500, Body: "down"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "no further attempts after caller cancellation")
}

func TestBackoffIsBoundedAndExponential(t *testing.T) {
	cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, 400*time.Millisecond, backoff(cfg, 3))
	assert.Equal(t, 500*time.Millisecond, backoff(cfg, 4), "capped at MaxDelay")
	assert.Equal(t, 500*time.Millisecond, backoff(cfg, 10))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want class
	}{
		{"server error", &HTTPError{StatusCode: 500}, classTransient},
		{"bad gateway", &HTTPError{StatusCode: 502}, classTransient},
		{"rate limit", &HTTPError{StatusCode: 429}, classTransient},
		{"not found", &HTTPError{StatusCode: 404}, classFatal},
		{"unauthorized", &HTTPError{StatusCode: 401}, classFatal},
		{"deadline", context.DeadlineExceeded, classTransient},
		{"cancelled", context.Canceled, classAborted},
		{"rate limited sentinel", domain.ErrRateLimited, classTransient},
		{"decode failure", errors.New("unexpected end of JSON input"), classFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
