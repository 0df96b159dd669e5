package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CampaignDB struct {
	bun.BaseModel `bun:"table:campaigns,alias:c"`

	ID           string         `bun:"id,pk" json:"id"`
	Goal         string         `bun:"goal,notnull" json:"goal"`
	Domain       Domain         `bun:"domain,notnull" json:"domain"`
	Provider     Provider       `bun:"provider,notnull" json:"provider"`
	Status       CampaignStatus `bun:"status,notnull,default:'PENDING'" json:"status"`
	CurrentStage string         `bun:"current_stage" json:"current_stage"`
	Error        *string        `bun:"error" json:"error,omitempty"`
	CreatedAt    time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (c *CampaignDB) ToCampaign() *Campaign {
	return &Campaign{
		ID:           c.ID,
		Goal:         c.Goal,
		Domain:       c.Domain,
		Provider:     c.Provider,
		Status:       c.Status,
		CurrentStage: c.CurrentStage,
		Error:        c.Error,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func CampaignFromApp(c *Campaign) *CampaignDB {
	return &CampaignDB{
		ID:           c.ID,
		Goal:         c.Goal,
		Domain:       c.Domain,
		Provider:     c.Provider,
		Status:       c.Status,
		CurrentStage: c.CurrentStage,
		Error:        c.Error,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type StageOutputDB struct {
	bun.BaseModel `bun:"table:stage_outputs,alias:so"`

	ID         uuid.UUID   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	CampaignID string      `bun:"campaign_id,notnull,unique:campaign_stage" json:"campaign_id"`
	Campaign   *CampaignDB `bun:"rel:belongs-to,join:campaign_id=id,on_delete:CASCADE"`
	Stage      string      `bun:"stage,notnull,unique:campaign_stage" json:"stage"`
	Content    string      `bun:"content,notnull" json:"content"`
	Degraded   bool        `bun:"degraded,notnull,default:false" json:"degraded"`
	UpdatedAt  time.Time   `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (o *StageOutputDB) ToStageOutput() *StageOutput {
	return &StageOutput{
		Stage:     o.Stage,
		Content:   o.Content,
		Degraded:  o.Degraded,
		UpdatedAt: o.UpdatedAt,
	}
}

type FeedbackDB struct {
	bun.BaseModel `bun:"table:stage_feedback,alias:sf"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	CampaignID string         `bun:"campaign_id,notnull" json:"campaign_id"`
	Stage      string         `bun:"stage,notnull" json:"stage"`
	Rating     FeedbackRating `bun:"rating,notnull" json:"rating"`
	CreatedAt  time.Time      `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type EmailRecordDB struct {
	bun.BaseModel `bun:"table:email_records,alias:er"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	CampaignID     string    `bun:"campaign_id,notnull" json:"campaign_id"`
	RecipientID    string    `bun:"recipient_id" json:"recipient_id"`
	RecipientName  string    `bun:"recipient_name" json:"recipient_name"`
	RecipientEmail string    `bun:"recipient_email,notnull" json:"recipient_email"`
	Subject        string    `bun:"subject" json:"subject"`
	SentAt         time.Time `bun:"sent_at,notnull" json:"sent_at"`
}

func (r *EmailRecordDB) ToEmailRecord() EmailRecord {
	return EmailRecord{
		RecipientID:    r.RecipientID,
		RecipientName:  r.RecipientName,
		RecipientEmail: r.RecipientEmail,
		Subject:        r.Subject,
		SentAt:         r.SentAt,
	}
}
