package attune

import (
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls the retry loop of the request engine.
type RetryConfig struct {
	// MaxRetries caps the total number of attempts for one call.
	MaxRetries int
	// InitialBackoff is the base delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff clamps the computed delay.
	MaxBackoff time.Duration
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64
	// JitterFraction perturbs each delay uniformly within this fraction
	// of its value. Zero disables jitter.
	JitterFraction float64
	// MaxElapsed bounds the total time spent across attempts. Zero
	// disables the bound.
	MaxElapsed time.Duration
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
		MaxElapsed:     60 * time.Second,
	}
}

// BaseDelay returns the deterministic backoff for a zero-indexed attempt:
// initial·multiplier^attempt, clamped to [initial, max].
func (c RetryConfig) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	if d < float64(c.InitialBackoff) {
		return c.InitialBackoff
	}
	return time.Duration(d)
}

// Delay returns the jittered backoff for a zero-indexed attempt.
func (c RetryConfig) Delay(attempt int) time.Duration {
	base := c.BaseDelay(attempt)
	if c.JitterFraction <= 0 || base <= 0 {
		return base
	}
	f := 1 + c.JitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(base) * f)
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// IsRetryable classifies an error as transient. Transport failures,
// timeouts, rate limits and 5xx responses are transient; everything else,
// including validation, decode failures and other 4xx responses, is
// permanent.
func IsRetryable(err error) bool {
	var (
		transport *TransportError
		timeout   *TimeoutError
		limited   *RateLimitError
		api       *APIError
	)
	switch {
	case errors.As(err, &limited), errors.As(err, &transport), errors.As(err, &timeout):
		return true
	case errors.As(err, &api):
		return RetryableStatus(api.Status)
	default:
		return false
	}
}

// retryAfterHint extracts a server-supplied wait from a rate limit error.
func retryAfterHint(err error) (time.Duration, bool) {
	var limited *RateLimitError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		return limited.RetryAfter, true
	}
	return 0, false
}

// RetryState tracks one call's progress through the retry policy. It is a
// plain state object with no timers of its own, so the engine and the tests
// can drive it directly.
type RetryState struct {
	cfg      RetryConfig
	attempts int
	lastErr  error
	started  time.Time
	now      func() time.Time
}

// NewRetryState starts tracking a call under cfg.
func NewRetryState(cfg RetryConfig) *RetryState {
	return newRetryState(cfg, time.Now)
}

func newRetryState(cfg RetryConfig, now func() time.Time) *RetryState {
	return &RetryState{cfg: cfg, started: now(), now: now}
}

// Attempts returns the number of failed attempts recorded so far.
func (s *RetryState) Attempts() int { return s.attempts }

// LastErr returns the most recently recorded error.
func (s *RetryState) LastErr() error { return s.lastErr }

// Next records one failed attempt and reports whether to retry and after
// what delay. A server-supplied retry-after is honored exactly, unjittered;
// otherwise the delay follows the jittered exponential schedule.
func (s *RetryState) Next(err error) (time.Duration, bool) {
	s.attempts++
	s.lastErr = err
	if !IsRetryable(err) {
		return 0, false
	}
	if s.attempts >= s.cfg.MaxRetries {
		return 0, false
	}
	if s.cfg.MaxElapsed > 0 && s.now().Sub(s.started) >= s.cfg.MaxElapsed {
		return 0, false
	}
	if hint, ok := retryAfterHint(err); ok {
		return hint, true
	}
	return s.cfg.Delay(s.attempts - 1), true
}
