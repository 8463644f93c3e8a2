package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/warp/collections-engine/logger"
)

// SendGrid emails the digest to a fixed recipient list.
type SendGrid struct {
	apiKey string
	from   *mail.Email
	to     []*mail.Email
}

func NewSendGrid(apiKey, fromEmail, fromName string, to []string) (*SendGrid, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid: api key is required")
	}
	if fromEmail == "" || len(to) == 0 {
		return nil, errors.New("sendgrid: sender and at least one recipient are required")
	}
	s := &SendGrid{apiKey: apiKey, from: mail.NewEmail(fromName, fromEmail)}
	for _, addr := range to {
		s.to = append(s.to, mail.NewEmail("", addr))
	}
	return s, nil
}

// Message builds the SendGrid v3 payload for d.
func (s *SendGrid) Message(d Digest) (*mail.SGMailV3, error) {
	html, err := d.HTML()
	if err != nil {
		return nil, err
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = d.Subject()

	p := mail.NewPersonalization()
	p.AddTos(s.to...)
	m.AddPersonalizations(p)

	m.AddContent(mail.NewContent("text/plain", d.Text()), mail.NewContent("text/html", html))
	return m, nil
}

func (s *SendGrid) SendDigest(ctx context.Context, d Digest) error {
	m, err := s.Message(d)
	if err != nil {
		return err
	}

	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, m)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send_digest", err, "recipients", len(s.to))
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	return nil
}
