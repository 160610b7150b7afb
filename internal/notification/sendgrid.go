package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers email through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SendGridSender) Send(ctx context.Context, to, toName, subject, plain, html string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail(toName, to),
		plain,
		html,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
