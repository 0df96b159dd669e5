package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignforge/internal/llm"
	"campaignforge/internal/models"
	"campaignforge/internal/pipeline"
	"campaignforge/internal/store"
)

type memStore struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
	outputs   map[string]map[string]*models.StageOutput
	feedback  map[string][]*models.FeedbackEntry
	emails    map[string][]models.EmailRecord
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: make(map[string]*models.Campaign),
		outputs:   make(map[string]map[string]*models.StageOutput),
		feedback:  make(map[string][]*models.FeedbackEntry),
		emails:    make(map[string][]models.EmailRecord),
	}
}

func (s *memStore) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *memStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListCampaigns(ctx context.Context, offset, limit int) ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for _, c := range s.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) SetCampaignStatus(ctx context.Context, id string, status models.CampaignStatus, currentStage string, runErr *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	c.CurrentStage = currentStage
	c.Error = runErr
	c.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) SaveStageOutput(ctx context.Context, campaignID, stage, content string, degraded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputs[campaignID] == nil {
		s.outputs[campaignID] = make(map[string]*models.StageOutput)
	}
	s.outputs[campaignID][stage] = &models.StageOutput{
		Stage: stage, Content: content, Degraded: degraded, UpdatedAt: time.Now(),
	}
	return nil
}

func (s *memStore) GetStageOutputs(ctx context.Context, campaignID string) ([]*models.StageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StageOutput
	for _, o := range s.outputs[campaignID] {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) SaveFeedback(ctx context.Context, f *models.FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = fmt.Sprintf("fb-%d", len(s.feedback[f.CampaignID])+1)
	}
	f.CreatedAt = time.Now()
	s.feedback[f.CampaignID] = append(s.feedback[f.CampaignID], f)
	return nil
}

func (s *memStore) GetFeedback(ctx context.Context, campaignID string) ([]*models.FeedbackEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback[campaignID], nil
}

func (s *memStore) SaveEmailRecords(ctx context.Context, campaignID string, records []models.EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[campaignID] = append(s.emails[campaignID], records...)
	return nil
}

func (s *memStore) GetEmailRecords(ctx context.Context, campaignID string) ([]models.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emails[campaignID], nil
}

func (s *memStore) Close() error { return nil }

type echoBackend struct{ err error }

func (b *echoBackend) Name() string { return "echo" }

func (b *echoBackend) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "generated output", nil
}

// labeledBackend answers with a fixed text and counts calls. Safe for the
// manager's background run goroutine.
type labeledBackend struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (b *labeledBackend) Name() string { return "labeled" }

func (b *labeledBackend) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return b.text, nil
}

func (b *labeledBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestManager(backend llm.Backend) (*Manager, *memStore) {
	client := llm.NewClient(backend, llm.RetryPolicy{MaxAttempts: 1})
	runner := pipeline.NewRunner(pipeline.Deps{LLM: client}, 0)
	st := newMemStore()
	return NewManager(st, runner), st
}

func waitForFinish(t *testing.T, m *Manager, campaignID string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for m.IsRunning(campaignID) {
		select {
		case <-deadline:
			t.Fatal("campaign run did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManagerStartRunsToCompletion(t *testing.T) {
	m, st := newTestManager(&echoBackend{})

	campaign, err := m.Start(context.Background(), "Increase SUV sales", "automotive", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	stored, err := st.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
	assert.Nil(t, stored.Error)

	outputs, err := st.GetStageOutputs(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Len(t, outputs, len(pipeline.Stages()))
	for _, o := range outputs {
		if o.Stage == pipeline.StageEmails.String() {
			continue
		}
		assert.Equal(t, "generated output", o.Content)
		assert.False(t, o.Degraded)
	}
}

func TestManagerRunsCampaignOnItsProvider(t *testing.T) {
	gemini := &labeledBackend{text: "gemini output"}
	openai := &labeledBackend{text: "openai output"}
	policy := llm.RetryPolicy{MaxAttempts: 1}
	deps := pipeline.Deps{
		LLM: llm.NewClient(gemini, policy),
		Clients: map[models.Provider]*llm.Client{
			models.ProviderGemini: llm.NewClient(gemini, policy),
			models.ProviderOpenAI: llm.NewClient(openai, policy),
		},
	}
	st := newMemStore()
	m := NewManager(st, pipeline.NewRunner(deps, 0))

	campaign, err := m.Start(context.Background(), "goal", "automotive", "openai")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	assert.Zero(t, gemini.callCount())
	assert.Equal(t, 6, openai.callCount())

	outputs, err := st.GetStageOutputs(context.Background(), campaign.ID)
	require.NoError(t, err)
	for _, o := range outputs {
		if o.Stage == pipeline.StageEmails.String() {
			continue
		}
		assert.Equal(t, "openai output", o.Content)
	}
}

func TestManagerStartRequiresGoal(t *testing.T) {
	m, _ := newTestManager(&echoBackend{})
	_, err := m.Start(context.Background(), "", "automotive", "gemini")
	assert.Error(t, err)
}

func TestManagerMarksDegradedOutputs(t *testing.T) {
	m, st := newTestManager(&echoBackend{err: &llm.RateLimitError{Err: errors.New("quota exceeded")}})

	campaign, err := m.Start(context.Background(), "goal", "healthcare", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	stored, err := st.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)

	outputs, err := st.GetStageOutputs(context.Background(), campaign.ID)
	require.NoError(t, err)
	for _, o := range outputs {
		stage, perr := pipeline.ParseStage(o.Stage)
		require.NoError(t, perr)
		if stage == pipeline.StageEmails {
			continue
		}
		assert.True(t, o.Degraded, "stage %s", o.Stage)
		assert.Equal(t, stage.Fallback(), o.Content)
	}
}

func TestManagerAuthFailureMarksFailed(t *testing.T) {
	m, st := newTestManager(&echoBackend{err: fmt.Errorf("%w: bad key", llm.ErrUnauthorized)})

	campaign, err := m.Start(context.Background(), "goal", "automotive", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	stored, err := st.GetCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, pipeline.StageResearch.String(), stored.CurrentStage)
}

func TestManagerCancelNotRunning(t *testing.T) {
	m, _ := newTestManager(&echoBackend{})
	assert.Error(t, m.Cancel("nope"))
}

func TestManagerFeedback(t *testing.T) {
	m, st := newTestManager(&echoBackend{})

	campaign, err := m.Start(context.Background(), "goal", "automotive", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	entry, err := m.Feedback(context.Background(), campaign.ID, "create_strategy", models.FeedbackNegative)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	stored, err := st.GetFeedback(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.FeedbackNegative, stored[0].Rating)
}

func TestManagerFeedbackValidation(t *testing.T) {
	m, _ := newTestManager(&echoBackend{})

	campaign, err := m.Start(context.Background(), "goal", "automotive", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	_, err = m.Feedback(context.Background(), campaign.ID, "paint_billboards", models.FeedbackPositive)
	assert.Error(t, err)

	_, err = m.Feedback(context.Background(), campaign.ID, "create_strategy", models.FeedbackRating("sideways"))
	assert.Error(t, err)

	_, err = m.Feedback(context.Background(), "missing", "create_strategy", models.FeedbackPositive)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManagerRegenerateReplacesStoredStage(t *testing.T) {
	m, st := newTestManager(&echoBackend{})

	campaign, err := m.Start(context.Background(), "goal", "automotive", "gemini")
	require.NoError(t, err)
	waitForFinish(t, m, campaign.ID)

	out, err := m.Regenerate(context.Background(), campaign.ID, "create_strategy")
	require.NoError(t, err)
	assert.Equal(t, "create_strategy", out.Stage)
	assert.Equal(t, "generated output", out.Content)

	outputs, err := st.GetStageOutputs(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Len(t, outputs, len(pipeline.Stages()))
}

func TestManagerRegenerateUnknownStage(t *testing.T) {
	m, _ := newTestManager(&echoBackend{})
	_, err := m.Regenerate(context.Background(), "camp", "paint_billboards")
	assert.Error(t, err)
}

func TestManagerSubscribeStreamsEvents(t *testing.T) {
	m, _ := newTestManager(&echoBackend{})

	campaign, err := m.Start(context.Background(), "goal", "automotive", "gemini")
	require.NoError(t, err)

	events, err := m.Subscribe(campaign.ID)
	if err != nil {
		// The run can already be done on a fast machine; nothing to stream.
		waitForFinish(t, m, campaign.ID)
		return
	}

	count := 0
	for range events {
		count++
	}
	waitForFinish(t, m, campaign.ID)
	assert.LessOrEqual(t, count, len(pipeline.Stages()))
}
