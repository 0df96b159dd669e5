// Package store persists campaigns, stage outputs, feedback and email
// records.
package store

import (
	"context"
	"errors"

	"campaignforge/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int) ([]*models.Campaign, error)
	SetCampaignStatus(ctx context.Context, id string, status models.CampaignStatus, currentStage string, runErr *string) error

	SaveStageOutput(ctx context.Context, campaignID, stage, content string, degraded bool) error
	GetStageOutputs(ctx context.Context, campaignID string) ([]*models.StageOutput, error)

	SaveFeedback(ctx context.Context, f *models.FeedbackEntry) error
	GetFeedback(ctx context.Context, campaignID string) ([]*models.FeedbackEntry, error)

	SaveEmailRecords(ctx context.Context, campaignID string, records []models.EmailRecord) error
	GetEmailRecords(ctx context.Context, campaignID string) ([]models.EmailRecord, error)

	Close() error
}
