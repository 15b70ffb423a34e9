package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// CodeTokenRefreshFailed is the only error code this package synthesizes
// itself; every other code comes from the adapter that produced the failure.
const CodeTokenRefreshFailed = "TOKEN_REFRESH_FAILED"

// Config bounds the retry loop and its backoff delays.
type Config struct {
	MaxRetries int           `json:"max_retries" bson:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" bson:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" bson:"max_delay"`
}

// DefaultConfig is used when callers supply no retry bounds.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Class is the three-way partition of adapter error codes.
type Class int

const (
	// ClassFatal covers validation, not-found and other client errors
	// that retrying cannot fix.
	ClassFatal Class = iota
	// ClassRetryable covers transient transport and server failures.
	ClassRetryable
	// ClassTokenExpired covers authentication expiry, remediated by a
	// one-shot credential refresh.
	ClassTokenExpired
)

var retryableCodes = map[string]struct{}{
	"NETWORK_ERROR":       {},
	"TIMEOUT":             {},
	"CONNECTION_RESET":    {},
	"RATE_LIMITED":        {},
	"SERVER_ERROR":        {},
	"BAD_GATEWAY":         {},
	"SERVICE_UNAVAILABLE": {},
	"GATEWAY_TIMEOUT":     {},
}

var tokenExpiredCodes = map[string]struct{}{
	"UNAUTHORIZED":  {},
	"TOKEN_EXPIRED": {},
	"INVALID_TOKEN": {},
	"AUTH_EXPIRED":  {},
}

// Classify maps an adapter error code onto its class. The lookup is
// pure: the same code always classifies the same way regardless of
// attempt number.
func Classify(code string) Class {
	if _, ok := retryableCodes[code]; ok {
		return ClassRetryable
	}
	if _, ok := tokenExpiredCodes[code]; ok {
		return ClassTokenExpired
	}
	return ClassFatal
}

// Backoff returns the delay before retry n (0-indexed):
// min(base * 2^n, max).
func Backoff(n int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < n; i++ {
		// Doubling past this point overflows to a negative duration.
		if delay > math.MaxInt64/2 {
			delay = math.MaxInt64
			break
		}
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// Operation performs one remote attempt. On failure it returns a
// non-nil error plus the adapter error code ("" when the adapter gave
// none, which classifies as fatal).
type Operation func(ctx context.Context) (interface{}, string, error)

// RefreshFunc rotates expired credentials. It is invoked at most once
// per call to Do.
type RefreshFunc func(ctx context.Context) error

// Result reports the outcome of a Do call. RetryCount counts ordinary
// retry slots consumed; the extra attempt granted after a successful
// token refresh is not one of them.
type Result struct {
	Success        bool
	Payload        interface{}
	Err            error
	ErrorCode      string
	RetryCount     int
	TokenRefreshed bool
}

// Do executes op up to cfg.MaxRetries+1 times, sleeping the backoff
// delay between attempts. It returns on first success, on the first
// fatal failure, or after exhausting retries.
//
// A token-expired failure triggers refresh (when supplied) at most once
// per Do call. A successful refresh grants one extra attempt without
// consuming a retry slot; a failed refresh terminates immediately with
// CodeTokenRefreshFailed and never falls back to ordinary retries.
//
// The backoff sleep is the only suspension point owned by this
// function; it is aborted as soon as ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg Config, refresh RefreshFunc) Result {
	retries := 0
	refreshAttempted := false

	for {
		payload, code, err := op(ctx)
		if err == nil {
			return Result{
				Success:        true,
				Payload:        payload,
				RetryCount:     retries,
				TokenRefreshed: refreshAttempted,
			}
		}

		switch Classify(code) {
		case ClassTokenExpired:
			if refresh == nil || refreshAttempted {
				return Result{
					Err:            err,
					ErrorCode:      code,
					RetryCount:     retries,
					TokenRefreshed: refreshAttempted,
				}
			}
			refreshAttempted = true
			if rerr := refresh(ctx); rerr != nil {
				return Result{
					Err:        fmt.Errorf("token refresh failed: %w", rerr),
					ErrorCode:  CodeTokenRefreshFailed,
					RetryCount: retries,
				}
			}
			// Retry once more on the refreshed credentials, free of charge.
			continue

		case ClassRetryable:
			if retries >= cfg.MaxRetries {
				return Result{
					Err:            err,
					ErrorCode:      code,
					RetryCount:     retries,
					TokenRefreshed: refreshAttempted,
				}
			}
			if serr := sleep(ctx, Backoff(retries, cfg.BaseDelay, cfg.MaxDelay)); serr != nil {
				return Result{
					Err:            serr,
					ErrorCode:      code,
					RetryCount:     retries,
					TokenRefreshed: refreshAttempted,
				}
			}
			retries++

		default:
			return Result{
				Err:            err,
				ErrorCode:      code,
				RetryCount:     retries,
				TokenRefreshed: refreshAttempted,
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
