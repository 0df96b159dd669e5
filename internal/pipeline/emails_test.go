package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignforge/internal/datasource"
	"campaignforge/internal/llm"
	"campaignforge/internal/mailer"
)

type staticRecipients struct {
	recipients []datasource.Recipient
}

func (s staticRecipients) Load(ctx context.Context) ([]datasource.Recipient, error) {
	if s.recipients == nil {
		return []datasource.Recipient{
			{ID: "1", Name: "Ana", Email: "ana@example.com", Region: "northeast"},
		}, nil
	}
	return s.recipients, nil
}

type recordingMailer struct {
	mu        sync.Mutex
	sent      []mailer.Email
	failTo    map[string]bool
	afterSend func(sent int)
}

func (m *recordingMailer) Send(ctx context.Context, email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[email.To] {
		return errors.New("550 mailbox unavailable")
	}
	m.sent = append(m.sent, email)
	if m.afterSend != nil {
		m.afterSend(len(m.sent))
	}
	return nil
}

// subjectBackend answers with a SUBJECT: formatted email.
type subjectBackend struct{ calls int }

func (b *subjectBackend) Name() string { return "subject" }

func (b *subjectBackend) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	b.calls++
	return fmt.Sprintf("SUBJECT: Summer Sale - Offer %d\n\nDear customer, here is your offer.", b.calls), nil
}

func TestSendEmailsCountsSuccessAndFailure(t *testing.T) {
	recipients := staticRecipients{recipients: []datasource.Recipient{
		{ID: "1", Name: "Ana", Email: "ana@example.com"},
		{ID: "2", Name: "Ben", Email: "ben@example.com"},
	}}
	sender := &recordingMailer{failTo: map[string]bool{"ben@example.com": true}}
	deps := Deps{
		LLM:        testClient(&subjectBackend{}),
		Recipients: recipients,
		Mailer:     sender,
	}

	st, err := sendEmails(context.Background(), deps, newState())
	require.NoError(t, err)

	assert.Equal(t, "Emails sent: 1, Failed: 1", st.EmailStatus)
	require.Len(t, st.SentEmailRecords, 1)
	assert.Equal(t, "ana@example.com", st.SentEmailRecords[0].RecipientEmail)
	assert.Equal(t, "Summer Sale - Offer 1", st.SentEmailRecords[0].Subject)
	assert.False(t, st.SentEmailRecords[0].SentAt.IsZero())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Dear customer, here is your offer.", sender.sent[0].Body)
}

func TestSendEmailsCachesFirstTemplate(t *testing.T) {
	recipients := staticRecipients{recipients: []datasource.Recipient{
		{ID: "1", Name: "Ana", Email: "ana@example.com"},
		{ID: "2", Name: "Ben", Email: "ben@example.com"},
	}}
	deps := Deps{
		LLM:        testClient(&subjectBackend{}),
		Recipients: recipients,
		Mailer:     &recordingMailer{},
	}

	st, err := sendEmails(context.Background(), deps, newState())
	require.NoError(t, err)

	require.Len(t, st.EmailTemplates, 1)
	assert.Equal(t, "Summer Sale - Offer 1", st.EmailTemplates[0].Subject)
}

func TestSendEmailsNoRecipients(t *testing.T) {
	deps := Deps{
		LLM:        testClient(&subjectBackend{}),
		Recipients: staticRecipients{recipients: []datasource.Recipient{}},
		Mailer:     &recordingMailer{},
	}

	st, err := sendEmails(context.Background(), deps, newState())
	require.NoError(t, err)
	assert.Equal(t, "No customer emails found", st.EmailStatus)
}

func TestSendEmailsCancelledMidBatchKeepsDelivered(t *testing.T) {
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
		LLM:        testClient(&subjectBackend{}),
		Recipients: recipients,
		Mailer:     sender,
	}

	st, err := sendEmails(ctx, deps, newState())
	require.ErrorIs(t, err, context.Canceled)

	// The two deliveries that happened before the cancel stay on the state.
	assert.Equal(t, "Emails sent: 2, Failed: 0", st.EmailStatus)
	require.Len(t, st.SentEmailRecords, 2)
	assert.Equal(t, "ben@example.com", st.SentEmailRecords[1].RecipientEmail)
	require.Len(t, sender.sent, 2)
}

func TestSendEmailsDegradedGenerationCountsAsFailure(t *testing.T) {
	backend := &scriptedBackend{err: &llm.RateLimitError{Err: errors.New("quota exceeded")}}
	deps := Deps{
		LLM:        testClient(backend),
		Recipients: staticRecipients{},
		Mailer:     &recordingMailer{},
	}

	st, err := sendEmails(context.Background(), deps, newState())
	require.NoError(t, err)
	assert.Equal(t, "Emails sent: 0, Failed: 1", st.EmailStatus)
	assert.Empty(t, st.SentEmailRecords)
	assert.Empty(t, st.EmailTemplates)
}

func TestSendEmailsAuthErrorIsFatal(t *testing.T) {
	backend := &scriptedBackend{err: fmt.Errorf("%w: invalid key", llm.ErrUnauthorized)}
	deps := Deps{
		LLM:        testClient(backend),
		Recipients: staticRecipients{},
		Mailer:     &recordingMailer{},
	}

	_, err := sendEmails(context.Background(), deps, newState())
	require.Error(t, err)
	assert.True(t, llm.IsAuth(err))
}

func TestParseEmailContent(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "subject and body",
			text:        "SUBJECT: Big Sale\n\nHello Ana,\nCome visit us.",
			wantSubject: "Big Sale",
			wantBody:    "Hello Ana,\nCome visit us.",
		},
		{
			name:        "no subject marker",
			text:        "Just a plain email body.",
			wantSubject: defaultEmailSubject,
			wantBody:    "Just a plain email body.",
		},
		{
			name:        "subject with single newline",
			text:        "SUBJECT: Quick Note\nBody right after.",
			wantSubject: "Quick Note",
			wantBody:    "Body right after.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := ParseEmailContent(tt.text)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
