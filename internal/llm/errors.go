package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized marks credential and permission failures. These are
// configuration errors: they are never retried and they abort the run.
var ErrUnauthorized = errors.New("llm: unauthorized")

// RateLimitError is a transient quota failure. RetryAfter carries the
// provider-suggested delay when one could be extracted, zero otherwise.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TimeoutError is a timed-out provider request. Like a rate limit it is
// transient and worth retrying, but it carries no delay hint.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm: timeout: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsTransient reports whether the error is worth retrying with backoff.
func IsTransient(err error) bool {
	var rl *RateLimitError
	var to *TimeoutError
	return errors.As(err, &rl) || errors.As(err, &to)
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Gemini quota errors embed the suggested delay as "retry_delay { seconds: N }".
var retryDelayPattern = regexp.MustCompile(`seconds:\s*(\d+)`)

// Classify buckets a provider error into rate-limit, auth, or other by
// inspecting its message. The genai SDK does not expose a stable error type
// across backends, so this mirrors the marker matching the providers document.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted"):
		return &RateLimitError{RetryAfter: parseRetryDelay(err.Error()), Err: err}
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "504"):
		return &TimeoutError{Err: err}
	case strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "api key"):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}

func parseRetryDelay(msg string) time.Duration {
	m := retryDelayPattern.FindStringSubmatch(msg)
	if len(m) != 2 {
		return 0
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
