// Package run coordinates live campaign executions: starting the pipeline in
// the background, streaming stage events to subscribers, cancellation,
// feedback, and single-stage regeneration.
package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campaignforge/internal/models"
	"campaignforge/internal/pipeline"
	"campaignforge/internal/store"
)

// Manager owns the active campaign runs. One run per campaign at a time.
type Manager struct {
	store  store.Store
	runner *pipeline.Runner

	mu     sync.RWMutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel      context.CancelFunc
	subscribers []chan pipeline.Event
}

func NewManager(st store.Store, runner *pipeline.Runner) *Manager {
	return &Manager{
		store:  st,
		runner: runner,
		active: make(map[string]*activeRun),
	}
}

// Start persists a new campaign and launches the pipeline in the background.
func (m *Manager) Start(ctx context.Context, goal, domain, provider string) (*models.Campaign, error) {
	if goal == "" {
		return nil, fmt.Errorf("campaign goal is required")
	}

	now := time.Now()
	campaign := &models.Campaign{
		ID:        uuid.New().String(),
		Goal:      goal,
		Domain:    models.ParseDomain(domain),
		Provider:  models.ParseProvider(provider),
		Status:    models.CampaignStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active[campaign.ID] = &activeRun{cancel: cancel}
	m.mu.Unlock()

	go m.execute(runCtx, campaign)

	return campaign, nil
}

func (m *Manager) execute(ctx context.Context, campaign *models.Campaign) {
	defer func() {
		m.mu.Lock()
		if run, ok := m.active[campaign.ID]; ok {
			for _, sub := range run.subscribers {
				close(sub)
			}
			delete(m.active, campaign.ID)
		}
		m.mu.Unlock()
	}()

	persistCtx := context.Background()
	if err := m.store.SetCampaignStatus(persistCtx, campaign.ID, models.CampaignStatusRunning, "", nil); err != nil {
		log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("Failed to mark campaign running")
	}

	events := make(chan pipeline.Event, len(pipeline.Stages()))
	done := make(chan pipeline.Outcome, 1)

	go func() {
		done <- m.runner.Run(ctx, models.CampaignState{
			Goal:     campaign.Goal,
			Domain:   campaign.Domain,
			Provider: campaign.Provider,
		}, events)
		close(events)
	}()

	for ev := range events {
		m.persistStage(persistCtx, campaign.ID, ev)
		m.fanOut(campaign.ID, ev)
	}

	outcome := <-done

	var runErr *string
	currentStage := ""
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		runErr = &msg
		currentStage = outcome.FailedStage.String()
	}
	if err := m.store.SetCampaignStatus(persistCtx, campaign.ID, outcome.Status, currentStage, runErr); err != nil {
		log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("Failed to persist campaign outcome")
	}

	if len(outcome.State.SentEmailRecords) > 0 {
		if err := m.store.SaveEmailRecords(persistCtx, campaign.ID, outcome.State.SentEmailRecords); err != nil {
			log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("Failed to persist email records")
		}
	}

	log.Info().
		Str("campaign_id", campaign.ID).
		Str("status", string(outcome.Status)).
		Msg("Campaign run finished")
}

func (m *Manager) persistStage(ctx context.Context, campaignID string, ev pipeline.Event) {
	content := ev.Stage.Output(ev.State)
	degraded := content != "" && content == ev.Stage.Fallback()
	if err := m.store.SaveStageOutput(ctx, campaignID, ev.Stage.String(), content, degraded); err != nil {
		log.Error().Err(err).
			Str("campaign_id", campaignID).
			Str("stage", ev.Stage.String()).
			Msg("Failed to persist stage output")
	}
}

func (m *Manager) fanOut(campaignID string, ev pipeline.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.active[campaignID]
	if !ok {
		return
	}
	for _, sub := range run.subscribers {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of stage events for a running campaign. The
// channel is closed when the run finishes. Returns an error when the
// campaign is not currently running.
func (m *Manager) Subscribe(campaignID string) (<-chan pipeline.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.active[campaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %s is not running", campaignID)
	}
	ch := make(chan pipeline.Event, len(pipeline.Stages()))
	run.subscribers = append(run.subscribers, ch)
	return ch, nil
}

// Cancel stops a running campaign. The run itself transitions the campaign
// to STOPPED once the current stage returns.
func (m *Manager) Cancel(campaignID string) error {
	m.mu.RLock()
	run, ok := m.active[campaignID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("campaign %s is not running", campaignID)
	}
	run.cancel()
	return nil
}

// IsRunning reports whether a campaign currently has an active run.
func (m *Manager) IsRunning(campaignID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[campaignID]
	return ok
}

// Get returns a campaign with its stored stage outputs.
func (m *Manager) Get(ctx context.Context, campaignID string) (*models.Campaign, []*models.StageOutput, error) {
	campaign, err := m.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	outputs, err := m.store.GetStageOutputs(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	return campaign, outputs, nil
}

// List returns stored campaigns, newest first.
func (m *Manager) List(ctx context.Context, offset, limit int) ([]*models.Campaign, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return m.store.ListCampaigns(ctx, offset, limit)
}

// Feedback records a rating for one stage of a campaign.
func (m *Manager) Feedback(ctx context.Context, campaignID, stage string, rating models.FeedbackRating) (*models.FeedbackEntry, error) {
	if _, err := pipeline.ParseStage(stage); err != nil {
		return nil, err
	}
	if rating != models.FeedbackPositive && rating != models.FeedbackNegative {
		return nil, fmt.Errorf("invalid rating: %q", rating)
	}
	if _, err := m.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	entry := &models.FeedbackEntry{
		CampaignID: campaignID,
		Stage:      stage,
		Rating:     rating,
	}
	if err := m.store.SaveFeedback(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Regenerate re-runs one stage of a finished campaign using the stored
// outputs of the other stages as inputs, then persists the replacement.
// Refused while the campaign is still running.
func (m *Manager) Regenerate(ctx context.Context, campaignID, stageName string) (*models.StageOutput, error) {
	stage, err := pipeline.ParseStage(stageName)
	if err != nil {
		return nil, err
	}
	if m.IsRunning(campaignID) {
		return nil, fmt.Errorf("campaign %s is still running", campaignID)
	}

	campaign, err := m.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	outputs, err := m.store.GetStageOutputs(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	st := models.CampaignState{
		Goal:     campaign.Goal,
		Domain:   campaign.Domain,
		Provider: campaign.Provider,
	}
	for _, out := range outputs {
		s, err := pipeline.ParseStage(out.Stage)
		if err != nil {
			continue
		}
		st = s.SetOutput(st, out.Content)
	}

	next, err := m.runner.Regenerate(ctx, stage, st)
	if err != nil {
		return nil, err
	}

	content := stage.Output(next)
	degraded := content != "" && content == stage.Fallback()
	if err := m.store.SaveStageOutput(ctx, campaignID, stage.String(), content, degraded); err != nil {
		return nil, err
	}
	if stage == pipeline.StageEmails && len(next.SentEmailRecords) > 0 {
		if err := m.store.SaveEmailRecords(ctx, campaignID, next.SentEmailRecords); err != nil {
			log.Error().Err(err).Str("campaign_id", campaignID).Msg("Failed to persist email records")
		}
	}

	return &models.StageOutput{
		Stage:     stage.String(),
		Content:   content,
		Degraded:  degraded,
		UpdatedAt: time.Now(),
	}, nil
}
