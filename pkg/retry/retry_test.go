package retry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   4 * time.Millisecond,
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name string
		n    int
		base time.Duration
		max  time.Duration
		want time.Duration
	}{
		{"first retry", 0, time.Second, 30 * time.Second, time.Second},
		{"second retry", 1, time.Second, 30 * time.Second, 2 * time.Second},
		{"third retry", 2, time.Second, 30 * time.Second, 4 * time.Second},
		{"fourth retry", 3, time.Second, 30 * time.Second, 8 * time.Second},
		{"capped", 10, time.Second, 30 * time.Second, 30 * time.Second},
		{"exactly at cap", 5, time.Second, 32 * time.Second, 32 * time.Second},
		{"zero base", 4, 0, 30 * time.Second, 0},
		{"huge n with cap", 500, time.Second, 30 * time.Second, 30 * time.Second},
		{"huge n without cap saturates", 500, time.Second, 0, time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(tt.n, tt.base, tt.max))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want Class
	}{
		{"NETWORK_ERROR", ClassRetryable},
		{"TIMEOUT", ClassRetryable},
		{"RATE_LIMITED", ClassRetryable},
		{"SERVER_ERROR", ClassRetryable},
		{"UNAUTHORIZED", ClassTokenExpired},
		{"TOKEN_EXPIRED", ClassTokenExpired},
		{"VALIDATION_ERROR", ClassFatal},
		{"NOT_FOUND", ClassFatal},
		{"", ClassFatal},
		{"SOMETHING_ELSE", ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code))
		})
	}
}

func TestDoFirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return "payload", "", nil
	}

	res := Do(context.Background(), op, fastConfig(), nil)

	assert.True(t, res.Success)
	assert.Equal(t, "payload", res.Payload)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, 1, attempts)
}

func TestDoRetryableThenSucceeds(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		if attempts < 3 {
			return nil, "NETWORK_ERROR", errors.New("connection refused")
		}
		return "ok", "", nil
	}

	res := Do(context.Background(), op, fastConfig(), nil)

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.RetryCount)
	assert.Equal(t, 3, attempts)
}

func TestDoRetriesExhausted(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return nil, "TIMEOUT", errors.New("deadline exceeded")
	}

	res := Do(context.Background(), op, fastConfig(), nil)

	assert.False(t, res.Success)
	assert.Equal(t, "TIMEOUT", res.ErrorCode)
	assert.Equal(t, 3, res.RetryCount)
	assert.Equal(t, 4, attempts) // initial attempt plus three retries
}

func TestDoFatalFailsImmediately(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return nil, "VALIDATION_ERROR", errors.New("missing required field")
	}

	res := Do(context.Background(), op, fastConfig(), nil)

	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.ErrorCode)
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, 1, attempts)
}

func TestDoTokenRefreshGrantsFreeAttempt(t *testing.T) {
	attempts := 0
	refreshCalls := 0

	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		if attempts == 1 {
			return nil, "UNAUTHORIZED", errors.New("token expired")
		}
		return "ok", "", nil
	}
	refresh := func(ctx context.Context) error {
		refreshCalls++
		return nil
	}

	res := Do(context.Background(), op, fastConfig(), refresh)

	assert.True(t, res.Success)
	assert.True(t, res.TokenRefreshed)
	assert.Equal(t, 0, res.RetryCount) // the post-refresh attempt is free
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 2, attempts)
}

func TestDoTokenRefreshHappensAtMostOnce(t *testing.T) {
	attempts := 0
	refreshCalls := 0

	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return nil, "UNAUTHORIZED", errors.New("still expired")
	}
	refresh := func(ctx context.Context) error {
		refreshCalls++
		return nil
	}

	res := Do(context.Background(), op, fastConfig(), refresh)

	assert.False(t, res.Success)
	assert.True(t, res.TokenRefreshed)
	assert.Equal(t, "UNAUTHORIZED", res.ErrorCode)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 2, attempts)
}

func TestDoTokenRefreshFailureIsTerminal(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return nil, "TOKEN_EXPIRED", errors.New("token expired")
	}
	refresh := func(ctx context.Context) error {
		return errors.New("refresh endpoint down")
	}

	res := Do(context.Background(), op, fastConfig(), refresh)

	assert.False(t, res.Success)
	assert.False(t, res.TokenRefreshed)
	assert.Equal(t, CodeTokenRefreshFailed, res.ErrorCode)
	assert.Equal(t, 1, attempts) // no ordinary retries after a failed refresh
}

func TestDoTokenExpiredWithoutRefreshFunc(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		return nil, "UNAUTHORIZED", errors.New("token expired")
	}

	res := Do(context.Background(), op, fastConfig(), nil)

	assert.False(t, res.Success)
	assert.Equal(t, "UNAUTHORIZED", res.ErrorCode)
	assert.Equal(t, 1, attempts)
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	op := func(ctx context.Context) (interface{}, string, error) {
		attempts++
		cancel()
		return nil, "NETWORK_ERROR", errors.New("connection refused")
	}

	cfg := Config{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	res := Do(ctx, op, cfg, nil)

	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
