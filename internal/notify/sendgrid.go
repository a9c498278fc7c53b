// Package notify sends operational mail such as the lifecycle sweep report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	ErrNoAPIKey    = errors.New("sendgrid api key is empty")
	ErrNoRecipient = errors.New("recipient address is empty")
)

// SendGrid delivers plain-text mail through the SendGrid API.
type SendGrid struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendGrid(apiKey, from string) *SendGrid {
	return &SendGrid{apiKey: apiKey, from: from, fromName: "Home Delivery"}
}

func (s *SendGrid) Send(ctx context.Context, to, subject, body string) error {
	if s.apiKey == "" {
		return ErrNoAPIKey
	}
	if to == "" {
		return ErrNoRecipient
	}

	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, s.message(to, subject, body))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	log.Printf("mail sent to %s: %s", to, subject)
	return nil
}

func (s *SendGrid) message(to, subject, body string) *mail.SGMailV3 {
	return mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail("", to),
		body,
		"<pre>"+html.EscapeString(body)+"</pre>",
	)
}
