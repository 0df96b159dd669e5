package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"campaignforge/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().
			Model((*models.CampaignDB)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create campaigns: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*models.StageOutputDB)(nil)).
			IfNotExists().
			ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("create stage_outputs: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*models.FeedbackDB)(nil)).
			IfNotExists().
			ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("create stage_feedback: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*models.EmailRecordDB)(nil)).
			IfNotExists().
			ForeignKey(`("campaign_id") REFERENCES "campaigns" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("create email_records: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.EmailRecordDB)(nil),
			(*models.FeedbackDB)(nil),
			(*models.StageOutputDB)(nil),
			(*models.CampaignDB)(nil),
		} {
			if _, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
