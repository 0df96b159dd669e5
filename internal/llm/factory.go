package llm

import (
	"context"
	"time"
)

type BackendConfig struct {
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Timeout       time.Duration
}

// NewBackendForProvider selects a backend by the campaign's provider tag.
// Anything unrecognized gets the default Gemini backend.
func NewBackendForProvider(ctx context.Context, provider string, cfg BackendConfig) (Backend, error) {
	switch provider {
	case "openai":
		return NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout), nil
	default:
		return NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
