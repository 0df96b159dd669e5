package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		msg       string
		rateLimit bool
		timeout   bool
		auth      bool
	}{
		{name: "quota", msg: "Quota exceeded for model", rateLimit: true},
		{name: "429", msg: "googleapi: Error 429: Resource has been exhausted", rateLimit: true},
		{name: "rate limit", msg: "rate limit reached for gpt-4o-mini", rateLimit: true},
		{name: "resource exhausted", msg: "rpc error: code = RESOURCE_EXHAUSTED", rateLimit: true},
		{name: "deadline exceeded", msg: "context deadline exceeded (Client.Timeout exceeded while awaiting headers)", timeout: true},
		{name: "timed out", msg: "request timed out", timeout: true},
		{name: "504", msg: "googleapi: Error 504: upstream gateway did not respond", timeout: true},
		{name: "401", msg: "status 401: invalid credentials", auth: true},
		{name: "403", msg: "status 403: forbidden", auth: true},
		{name: "api key", msg: "API key not valid. Please pass a valid API key.", auth: true},
		{name: "permission denied", msg: "permission denied on project", auth: true},
		{name: "other", msg: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.msg))
			assert.Equal(t, tt.rateLimit, IsRateLimit(got))
			assert.Equal(t, tt.auth, IsAuth(got))
			assert.Equal(t, tt.rateLimit || tt.timeout, IsTransient(got))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestClassifyExtractsRetryDelay(t *testing.T) {
	err := Classify(errors.New("429 quota exceeded, retry_delay { seconds: 42 }"))
	var rl *RateLimitError
	assert.True(t, errors.As(err, &rl))
	assert.Equal(t, 42*time.Second, rl.RetryAfter)
}

func TestParseRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryDelay("retry_delay { seconds: 30 }"))
	assert.Equal(t, time.Duration(0), parseRetryDelay("no hint here"))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Second, MaxDelay: 60 * time.Second}

	t.Run("hint wins", func(t *testing.T) {
		assert.Equal(t, 17*time.Second, p.Delay(1, 17*time.Second))
	})

	t.Run("hint capped at max", func(t *testing.T) {
		assert.Equal(t, 60*time.Second, p.Delay(1, 5*time.Minute))
	})

	t.Run("backoff stays within bounds", func(t *testing.T) {
		for attempt := 1; attempt <= 10; attempt++ {
			d := p.Delay(attempt, 0)
			assert.Greater(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, p.MaxDelay)
		}
	})

	t.Run("backoff grows with attempts", func(t *testing.T) {
		// With jitter in [d/2, d], attempt 3 (20s base) always exceeds
		// attempt 1's maximum of 5s.
		assert.Greater(t, p.Delay(3, 0), p.Delay(1, 0))
	})
}
