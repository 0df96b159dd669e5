package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"campaignforge/internal/models"
)

type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connectionString)))

	db := bun.NewDB(sqldb, pgdialect.New())

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	store := &PostgresStore{db: db}

	ctx := context.Background()
	if err := store.InitializeDatabase(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) InitializeDatabase(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*models.CampaignDB)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create campaigns table: %w", err)
	}

	_, err = s.db.NewCreateTable().
		Model((*models.StageOutputDB)(nil)).
		IfNotExists().
		ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create stage_outputs table: %w", err)
	}

	_, err = s.db.NewCreateTable().
		Model((*models.FeedbackDB)(nil)).
		IfNotExists().
		ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create stage_feedback table: %w", err)
	}

	_, err = s.db.NewCreateTable().
		Model((*models.EmailRecordDB)(nil)).
		IfNotExists().
		ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create email_records table: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*models.StageOutputDB)(nil)).
		Index("idx_stage_outputs_campaign_id").
		Column("campaign_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create campaign_id index: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*models.CampaignDB)(nil)).
		Index("idx_campaigns_status").
		Column("status").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	_, err := s.db.NewInsert().
		Model(models.CampaignFromApp(c)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	campaign := new(models.CampaignDB)
	err := s.db.NewSelect().
		Model(campaign).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign.ToCampaign(), nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, offset, limit int) ([]*models.Campaign, error) {
	var rows []*models.CampaignDB
	err := s.db.NewSelect().
		Model(&rows).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	campaigns := make([]*models.Campaign, len(rows))
	for i, r := range rows {
		campaigns[i] = r.ToCampaign()
	}
	return campaigns, nil
}

func (s *PostgresStore) SetCampaignStatus(ctx context.Context, id string, status models.CampaignStatus, currentStage string, runErr *string) error {
	res, err := s.db.NewUpdate().
		Model((*models.CampaignDB)(nil)).
		Set("status = ?", status).
		Set("current_stage = ?", currentStage).
		Set("error = ?", runErr).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveStageOutput(ctx context.Context, campaignID, stage, content string, degraded bool) error {
	output := &models.StageOutputDB{
		ID:         uuid.New(),
		CampaignID: campaignID,
		Stage:      stage,
		Content:    content,
		Degraded:   degraded,
		UpdatedAt:  time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(output).
		On("CONFLICT (campaign_id, stage) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("degraded = EXCLUDED.degraded").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save stage output: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStageOutputs(ctx context.Context, campaignID string) ([]*models.StageOutput, error) {
	var rows []*models.StageOutputDB
	err := s.db.NewSelect().
		Model(&rows).
		Where("campaign_id = ?", campaignID).
		Order("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage outputs: %w", err)
	}

	outputs := make([]*models.StageOutput, len(rows))
	for i, r := range rows {
		outputs[i] = r.ToStageOutput()
	}
	return outputs, nil
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, f *models.FeedbackEntry) error {
	row := &models.FeedbackDB{
		ID:         uuid.New(),
		CampaignID: f.CampaignID,
		Stage:      f.Stage,
		Rating:     f.Rating,
		CreatedAt:  time.Now(),
	}
	if f.ID != "" {
		if id, err := uuid.Parse(f.ID); err == nil {
			row.ID = id
		}
	}

	_, err := s.db.NewInsert().
		Model(row).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	f.ID = row.ID.String()
	f.CreatedAt = row.CreatedAt
	return nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, campaignID string) ([]*models.FeedbackEntry, error) {
	var rows []*models.FeedbackDB
	err := s.db.NewSelect().
		Model(&rows).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	entries := make([]*models.FeedbackEntry, len(rows))
	for i, r := range rows {
		entries[i] = &models.FeedbackEntry{
			ID:         r.ID.String(),
			CampaignID: r.CampaignID,
			Stage:      r.Stage,
			Rating:     r.Rating,
			CreatedAt:  r.CreatedAt,
		}
	}
	return entries, nil
}

func (s *PostgresStore) SaveEmailRecords(ctx context.Context, campaignID string, records []models.EmailRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]*models.EmailRecordDB, len(records))
	for i, r := range records {
		rows[i] = &models.EmailRecordDB{
			ID:             uuid.New(),
			CampaignID:     campaignID,
			RecipientID:    r.RecipientID,
			RecipientName:  r.RecipientName,
			RecipientEmail: r.RecipientEmail,
			Subject:        r.Subject,
			SentAt:         r.SentAt,
		}
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save email records: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEmailRecords(ctx context.Context, campaignID string) ([]models.EmailRecord, error) {
	var rows []*models.EmailRecordDB
	err := s.db.NewSelect().
		Model(&rows).
		Where("campaign_id = ?", campaignID).
		Order("sent_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get email records: %w", err)
	}

	records := make([]models.EmailRecord, len(rows))
	for i, r := range rows {
		records[i] = r.ToEmailRecord()
	}
	return records, nil
}
