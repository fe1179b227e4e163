package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/beanvault/storefront-backend/pkg/config"
)

// Attachment is a file carried by an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound transactional email.
type Message struct {
	ToEmail     string
	ToName      string
	Subject     string
	HTML        string
	BCC         []string
	Attachments []Attachment
}

// Sender delivers transactional email. A send either succeeds or fails;
// delivery retries and provider failover are not this layer's job.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridSender delivers messages through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgridSender builds a sender from the configured API key and from address.
func NewSendgridSender(cfg config.SendgridConfig) (*SendgridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.From),
	}, nil
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	resp, err := s.client.SendWithContext(ctx, buildV3Mail(s.from, msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return errors.New("html body is required")
	}
	return nil
}

func buildV3Mail(from *sgmail.Email, msg Message) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))
	for _, bcc := range msg.BCC {
		if strings.TrimSpace(bcc) == "" || strings.EqualFold(bcc, msg.ToEmail) {
			continue
		}
		p.AddBCCs(sgmail.NewEmail("", bcc))
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))

	for _, att := range msg.Attachments {
		if len(att.Data) == 0 {
			continue
		}
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	return m
}
