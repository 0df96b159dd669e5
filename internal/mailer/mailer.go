// Package mailer delivers the generated campaign emails over SMTP.
package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"
)

type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Server   string
	Port     int
	Sender   string
	Password string
}

// SMTPSender sends over implicit TLS, the mode Gmail app passwords use on
// port 465.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Server == "" || cfg.Sender == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SMTP server, sender email and password are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.Sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.AddToFormat(email.ToName, email.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	client, err := mail.NewClient(s.cfg.Server,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Sender),
		mail.WithPassword(s.cfg.Password),
		mail.WithSSLPort(false),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
