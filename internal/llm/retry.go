package llm

import (
	"math/rand"
	"time"
)

// RetryPolicy controls how rate-limited generation calls are retried. It is a
// plain value so tests can exercise backoff computation without a backend.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   5 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (1-based). A provider
// hint wins over the computed backoff; otherwise the base delay doubles per
// attempt with half-delay jitter, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		if hint > p.MaxDelay {
			return p.MaxDelay
		}
		return hint
	}

	d := p.BaseDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
