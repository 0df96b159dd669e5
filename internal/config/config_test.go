package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, 5, cfg.StepDelaySeconds)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "data/index.db", cfg.VectorDBPath)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("STEP_DELAY", "0")
	t.Setenv("SENDER_EMAIL", "campaigns@example.com")

	cfg := Load()

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 0, cfg.StepDelaySeconds)
	assert.Equal(t, "campaigns@example.com", cfg.SenderEmail)
	assert.Equal(t, "campaigns@example.com", cfg.SMTPUsername)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	cfg := Load()
	assert.Equal(t, 5, cfg.MaxRetries)
}
