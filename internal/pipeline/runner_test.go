package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignforge/internal/datasource"
	"campaignforge/internal/llm"
	"campaignforge/internal/models"
)

// scriptedBackend answers every generation call the same way, optionally
// invoking a hook after each call.
type scriptedBackend struct {
	text      string
	err       error
	calls     int
	afterCall func(calls int)
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	b.calls++
	if b.afterCall != nil {
		b.afterCall(b.calls)
	}
	if b.err != nil {
		return "", b.err
	}
	return fmt.Sprintf("%s #%d", b.text, b.calls), nil
}

func testClient(backend llm.Backend) *llm.Client {
	return llm.NewClient(backend, llm.RetryPolicy{MaxAttempts: 1, BaseDelay: 0, MaxDelay: 0})
}

func newState() models.CampaignState {
	return models.CampaignState{
		Goal:     "Increase Q3 SUV sales in the northeast",
		Domain:   models.DomainAutomotive,
		Provider: models.ProviderGemini,
	}
}

func TestRunCompletesAllStages(t *testing.T) {
	backend := &scriptedBackend{text: "output"}
	deps := Deps{
		LLM:        testClient(backend),
		Recipients: staticRecipients{},
		Mailer:     &recordingMailer{},
	}
	r := NewRunner(deps, 0)

	events := make(chan Event, len(Stages()))
	outcome := r.Run(context.Background(), newState(), events)
	close(events)

	require.NoError(t, outcome.Err)
	assert.Equal(t, models.CampaignStatusCompleted, outcome.Status)

	st := outcome.State
	for _, stage := range Stages() {
		assert.NotEmpty(t, stage.Output(st), "stage %s left no output", stage)
	}

	var seen []Stage
	for ev := range events {
		seen = append(seen, ev.Stage)
	}
	assert.Equal(t, Stages(), seen)
}

func TestRunDegradesToFallbacksWhenRateLimited(t *testing.T) {
	backend := &scriptedBackend{err: &llm.RateLimitError{Err: errors.New("quota exceeded")}}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	outcome := r.Run(context.Background(), newState(), nil)

	require.NoError(t, outcome.Err)
	assert.Equal(t, models.CampaignStatusCompleted, outcome.Status)

	st := outcome.State
	for _, stage := range Stages()[:6] {
		assert.Equal(t, stage.Fallback(), stage.Output(st), "stage %s", stage)
	}
	// No mailer configured, so the email stage reports that instead of sending.
	assert.Equal(t, "Email sending failed: Missing email credentials", st.EmailStatus)
}

func TestRunAbortsOnAuthError(t *testing.T) {
	backend := &scriptedBackend{err: fmt.Errorf("%w: invalid key", llm.ErrUnauthorized)}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	outcome := r.Run(context.Background(), newState(), nil)

	require.Error(t, outcome.Err)
	assert.Equal(t, models.CampaignStatusFailed, outcome.Status)
	assert.Equal(t, StageResearch, outcome.FailedStage)
	assert.Equal(t, 1, backend.calls)

	// Nothing after the failed stage ran.
	st := outcome.State
	for _, stage := range Stages() {
		assert.Empty(t, stage.Output(st), "stage %s", stage)
	}
}

func TestRunStoppedMidwayKeepsCompletedStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &scriptedBackend{
		text: "output",
		afterCall: func(calls int) {
			if calls == 3 {
				cancel()
			}
		},
	}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	outcome := r.Run(ctx, newState(), nil)

	require.Error(t, outcome.Err)
	assert.Equal(t, models.CampaignStatusStopped, outcome.Status)

	st := outcome.State
	for _, stage := range Stages()[:3] {
		assert.NotEmpty(t, stage.Output(st), "completed stage %s", stage)
	}
	for _, stage := range Stages()[3:] {
		assert.Empty(t, stage.Output(st), "unreached stage %s", stage)
	}
}

func TestRunStoppedMidBatchKeepsDeliveredEmails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recipients := staticRecipients{recipients: []datasource.Recipient{
		{ID: "1", Name: "Ana", Email: "ana@example.com"},
		{ID: "2", Name: "Ben", Email: "ben@example.com"},
		{ID: "3", Name: "Cam", Email: "cam@example.com"},
	}}
	sender := &recordingMailer{afterSend: func(sent int) {
		if sent == 2 {
			cancel()
		}
	}}
	deps := Deps{
		LLM:        testClient(&scriptedBackend{text: "output"}),
		Recipients: recipients,
		Mailer:     sender,
	}
	r := NewRunner(deps, 0)

	outcome := r.Run(ctx, newState(), nil)

	require.Error(t, outcome.Err)
	assert.Equal(t, models.CampaignStatusStopped, outcome.Status)
	assert.Equal(t, StageEmails, outcome.FailedStage)

	st := outcome.State
	assert.Equal(t, "Emails sent: 2, Failed: 0", st.EmailStatus)
	require.Len(t, st.SentEmailRecords, 2)
	require.Len(t, sender.sent, 2)
}

func TestRunSelectsClientByProvider(t *testing.T) {
	gemini := &scriptedBackend{text: "gemini output"}
	openai := &scriptedBackend{text: "openai output"}
	deps := Deps{
		LLM: testClient(gemini),
		Clients: map[models.Provider]*llm.Client{
			models.ProviderGemini: testClient(gemini),
			models.ProviderOpenAI: testClient(openai),
		},
	}
	r := NewRunner(deps, 0)

	st := newState()
	st.Provider = models.ProviderOpenAI
	outcome := r.Run(context.Background(), st, nil)

	require.NoError(t, outcome.Err)
	// Six generating stages; the email stage has no mailer and skips.
	assert.Equal(t, 6, openai.calls)
	assert.Zero(t, gemini.calls)
	assert.Contains(t, outcome.State.MarketAnalysis, "openai output")
}

func TestRunFallsBackToDefaultClient(t *testing.T) {
	backend := &scriptedBackend{text: "default output"}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	st := newState()
	st.Provider = models.ProviderOpenAI
	outcome := r.Run(context.Background(), st, nil)

	require.NoError(t, outcome.Err)
	assert.Equal(t, 6, backend.calls)
}

func TestRegenerateReplacesSingleField(t *testing.T) {
	backend := &scriptedBackend{text: "regenerated"}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	before := newState()
	before.MarketAnalysis = "old analysis"
	before.AudienceSegments = "old segments"
	before.Strategy = "old strategy"
	before.Content = "old content"
	before.SimulationResults = "old simulation"
	before.FinalReport = "old report"

	after, err := r.Regenerate(context.Background(), StageStrategy, before)
	require.NoError(t, err)

	assert.NotEqual(t, before.Strategy, after.Strategy)
	assert.Equal(t, before.MarketAnalysis, after.MarketAnalysis)
	assert.Equal(t, before.AudienceSegments, after.AudienceSegments)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, before.SimulationResults, after.SimulationResults)
	assert.Equal(t, before.FinalReport, after.FinalReport)
	assert.Equal(t, before.EmailStatus, after.EmailStatus)
}

func TestRunLeavesInputStateUntouched(t *testing.T) {
	backend := &scriptedBackend{text: "output"}
	r := NewRunner(Deps{LLM: testClient(backend)}, 0)

	input := newState()
	outcome := r.Run(context.Background(), input, nil)

	require.NoError(t, outcome.Err)
	assert.Empty(t, input.MarketAnalysis)
	assert.NotEmpty(t, outcome.State.MarketAnalysis)
}

func TestParseStage(t *testing.T) {
	for _, s := range Stages() {
		got, err := ParseStage(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStage("deploy_billboards")
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcde... [truncated]", clip("abcdefgh", 5))

	// A cut landing inside a multi-byte rune backs up to the rune start.
	assert.Equal(t, "a... [truncated]", clip("aé longer text", 2))
	assert.True(t, utf8.ValidString(clip(strings.Repeat("é", 200), 151)))
}
