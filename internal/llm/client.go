package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Backend is a single text-generation provider. Implementations return
// classified errors (see Classify) and nothing else about failures.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Client wraps a Backend with the retry contract: rate limits and timeouts
// retry with backoff, auth errors surface immediately, everything else is
// returned to the caller to degrade on.
type Client struct {
	backend Backend
	policy  RetryPolicy
	sleep   func(context.Context, time.Duration) error
}

func NewClient(backend Backend, policy RetryPolicy) *Client {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Client{
		backend: backend,
		policy:  policy,
		sleep:   sleepContext,
	}
}

func (c *Client) Backend() string { return c.backend.Name() }

func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("llm: empty prompt")
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		text, err := c.backend.Generate(ctx, prompt, temperature)
		if err == nil {
			return text, nil
		}
		if IsAuth(err) {
			return "", err
		}

		lastErr = err
		if !IsTransient(err) {
			return "", err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		var hint time.Duration
		var rl *RateLimitError
		if errors.As(err, &rl) {
			hint = rl.RetryAfter
		}
		delay := c.policy.Delay(attempt, hint)
		log.Warn().
			Str("backend", c.backend.Name()).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Transient provider error, backing off before retry")
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Result distinguishes a real completion from fallback text so callers don't
// have to string-match sentinels to detect degradation.
type Result struct {
	Text     string
	Degraded bool
	Reason   string
}

// GenerateWithFallback absorbs every recoverable failure into a degraded
// Result carrying the given fallback text. The only error it returns is an
// auth/configuration one, which must abort the whole run.
func (c *Client) GenerateWithFallback(ctx context.Context, prompt string, temperature float32, fallback string) (Result, error) {
	text, err := c.Generate(ctx, prompt, temperature)
	if err != nil {
		if IsAuth(err) {
			return Result{}, err
		}
		log.Warn().Err(err).Str("backend", c.backend.Name()).Msg("Generation degraded to fallback")
		return Result{Text: fallback, Degraded: true, Reason: err.Error()}, nil
	}
	if text == "" {
		return Result{Text: fallback, Degraded: true, Reason: "empty completion"}, nil
	}
	return Result{Text: text}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
