package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/datasource"
	"campaignforge/internal/mailer"
	"campaignforge/internal/models"
)

const defaultEmailSubject = "Special Offer from Our Campaign"

// sendEmails personalizes and delivers one email per recipient. A recipient
// failure only increments the failed counter; the stage keeps going. The only
// fatal outcome is an auth error from the generation client. Cancellation
// stops the batch before the next recipient but keeps the tally and the
// records of everything already delivered.
func sendEmails(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	if d.Mailer == nil {
		return StageEmails.SetOutput(st, "Email sending failed: Missing email credentials"), nil
	}
	if d.Recipients == nil {
		return StageEmails.SetOutput(st, "Email sending failed: No recipient source configured"), nil
	}

	recipients, err := d.Recipients.Load(ctx)
	if err != nil {
		return StageEmails.SetOutput(st, fmt.Sprintf("Email sending failed: %v", err)), nil
	}
	if len(recipients) == 0 {
		return StageEmails.SetOutput(st, "No customer emails found"), nil
	}

	sent, failed := 0, 0
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return StageEmails.SetOutput(st, fmt.Sprintf("Emails sent: %d, Failed: %d", sent, failed)), err
		}

		subject, body, err := personalizeEmail(ctx, d, st, r)
		if err != nil {
			return st, err
		}
		if body == "" {
			failed++
			continue
		}

		// Cache the first generated template so a re-run can reuse it.
		if len(st.EmailTemplates) == 0 {
			st.EmailTemplates = append(st.EmailTemplates, models.EmailTemplate{
				Subject: subject,
				Body:    body,
			})
		}

		if err := d.Mailer.Send(ctx, mailer.Email{
			To:      r.Email,
			ToName:  r.Name,
			Subject: subject,
			Body:    body,
		}); err != nil {
			log.Warn().Err(err).Str("recipient", r.Email).Msg("Failed to send campaign email")
			failed++
			continue
		}

		sent++
		st.SentEmailRecords = append(st.SentEmailRecords, models.EmailRecord{
			RecipientID:    r.ID,
			RecipientName:  r.Name,
			RecipientEmail: r.Email,
			Subject:        subject,
			SentAt:         time.Now().UTC(),
		})
	}

	return StageEmails.SetOutput(st, fmt.Sprintf("Emails sent: %d, Failed: %d", sent, failed)), nil
}

// personalizeEmail generates the per-recipient subject and body. Degraded
// generation yields an empty body, which the caller counts as a failure for
// that recipient only.
func personalizeEmail(ctx context.Context, d Deps, st models.CampaignState, r datasource.Recipient) (subject, body string, err error) {
	prompt := fmt.Sprintf(`Create a personalized marketing email based on:

Campaign Goal: %s
Campaign Strategy: %s

Customer Details:
- Name: %s
- Email: %s
- Preferences: %s
- Region: %s

The email should:
1. Include a personalized greeting using the customer's name
2. Reference their specific preferences if available
3. Highlight campaign benefits relevant to their region
4. Include a clear call-to-action
5. Be professional yet engaging

Format:
SUBJECT: [Campaign Name] - Personalized Offer for %s

[Email Body with personalization]`,
		st.Goal, clip(st.Strategy, 500), r.Name, r.Email, r.Preferences, r.Region, r.Name)

	result, genErr := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.6, "")
	if genErr != nil {
		return "", "", genErr
	}
	if result.Degraded {
		return "", "", nil
	}

	subject, body = ParseEmailContent(result.Text)
	return subject, body, nil
}

// ParseEmailContent splits generated email text into subject and body. Text
// without a SUBJECT: line becomes the body under a generic subject.
func ParseEmailContent(text string) (subject, body string) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "SUBJECT:"); idx >= 0 {
		rest := text[idx+len("SUBJECT:"):]
		if sep := strings.Index(rest, "\n\n"); sep >= 0 {
			return strings.TrimSpace(rest[:sep]), strings.TrimSpace(rest[sep+2:])
		}
		// Subject line only; treat the first line as subject.
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			return strings.TrimSpace(rest[:nl]), strings.TrimSpace(rest[nl+1:])
		}
		return strings.TrimSpace(rest), ""
	}
	return defaultEmailSubject, text
}
