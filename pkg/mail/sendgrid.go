// Package mail delivers transactional e-mail through SendGrid.
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// ErrDisabled is returned by the no-op sender.
var ErrDisabled = errors.New("mail delivery disabled")

// Message is one outbound e-mail. HTML defaults to the escaped text body.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender implements Sender on the SendGrid v3 API.
type SendGridSender struct {
	api      sendgridAPI
	from     string
	fromName string
	logg     *logger.Logger
}

// New returns a SendGrid sender, or a NoopSender when the API key or the
// sender address is missing.
func New(cfg config.SendgridConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return NoopSender{logg: logg}
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logg)
}

func newSendGridSender(api sendgridAPI, cfg config.SendgridConfig, logg *logger.Logger) *SendGridSender {
	return &SendGridSender{
		api:      api,
		from:     strings.TrimSpace(cfg.DefaultFrom),
		fromName: cfg.FromName,
		logg:     logg,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient address is empty")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is empty")
	}

	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = "<pre>" + html.EscapeString(msg.Text) + "</pre>"
	}
	email := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.fromName, s.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		htmlBody,
	)

	resp, err := s.api.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"status":  resp.StatusCode,
			"subject": msg.Subject,
		})
		s.logg.Info(logCtx, "mail sent")
	}
	return nil
}

// StatusError is a non-2xx SendGrid response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sendgrid send failed: status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed later (throttling or a
// server-side failure).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NoopSender drops messages. It lets the worker run without SendGrid
// credentials in development.
type NoopSender struct {
	logg *logger.Logger
}

func (n NoopSender) Send(ctx context.Context, msg Message) error {
	if n.logg != nil {
		n.logg.Warn(n.logg.WithField(ctx, "subject", msg.Subject), "mail disabled; message dropped")
	}
	return ErrDisabled
}
