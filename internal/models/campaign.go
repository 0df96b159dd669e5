package models

import "time"

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "PENDING"
	CampaignStatusRunning   CampaignStatus = "RUNNING"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusStopped   CampaignStatus = "STOPPED"
	CampaignStatusFailed    CampaignStatus = "FAILED"
)

// Campaign is one pipeline run and its lifecycle metadata.
type Campaign struct {
	ID           string         `json:"id"`
	Goal         string         `json:"goal"`
	Domain       Domain         `json:"domain"`
	Provider     Provider       `json:"provider"`
	Status       CampaignStatus `json:"status"`
	CurrentStage string         `json:"current_stage,omitempty"`
	Error        *string        `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// StageOutput is the persisted text a stage produced for a campaign.
type StageOutput struct {
	Stage     string    `json:"stage"`
	Content   string    `json:"content"`
	Degraded  bool      `json:"degraded"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FeedbackRating string

const (
	FeedbackPositive FeedbackRating = "up"
	FeedbackNegative FeedbackRating = "down"
)

// FeedbackEntry records one thumbs-up/down a user gave a stage's output.
type FeedbackEntry struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaign_id"`
	Stage      string         `json:"stage"`
	Rating     FeedbackRating `json:"rating"`
	CreatedAt  time.Time      `json:"created_at"`
}
