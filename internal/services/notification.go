package services

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"agenda/internal/models"
)

// NotificationSender delivers one reminder notification over a single
// channel. A non-nil error means the dispatch failed and may be retried;
// the transport's own error detail is not typed further at this boundary.
type NotificationSender interface {
	Send(recipient, subject, body string) error
}

// SenderMap routes a reminder's notification type to its transport
type SenderMap map[models.NotificationType]NotificationSender

// EmailSender sends reminder emails through SendGrid.
type EmailSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewEmailSender builds an email sender from SENDGRID_* environment variables
func NewEmailSender() *EmailSender {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL")
	fromName := os.Getenv("SENDGRID_FROM_NAME")

	return &EmailSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers a single reminder email
func (s *EmailSender) Send(recipient, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(recipient, recipient)
	htmlBody := fmt.Sprintf("<p>%s</p>", body)

	message := mail.NewSingleEmail(from, subject, to, body, htmlBody)
	response, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", recipient, response.StatusCode)
	}
	return nil
}

// PushSender is a placeholder push transport. It logs the notification and
// reports success so the reminder is marked sent rather than retried forever.
// TODO: wire up a real push provider (FCM/APNs) once device tokens exist.
type PushSender struct {
	log zerolog.Logger
}

// NewPushSender builds the placeholder push transport
func NewPushSender(log zerolog.Logger) *PushSender {
	return &PushSender{log: log}
}

func (s *PushSender) Send(recipient, subject, body string) error {
	s.log.Info().Str("recipient", recipient).Str("subject", subject).
		Msg("push notifications not implemented yet, marking as sent")
	return nil
}

// SMSSender is a placeholder SMS transport, same contract as PushSender.
type SMSSender struct {
	log zerolog.Logger
}

// NewSMSSender builds the placeholder SMS transport
func NewSMSSender(log zerolog.Logger) *SMSSender {
	return &SMSSender{log: log}
}

func (s *SMSSender) Send(recipient, subject, body string) error {
	s.log.Info().Str("recipient", recipient).Str("subject", subject).
		Msg("SMS notifications not implemented yet, marking as sent")
	return nil
}

// DefaultSenders builds the standard channel routing: real email, placeholder
// push and SMS.
func DefaultSenders(log zerolog.Logger) SenderMap {
	return SenderMap{
		models.NotifyEmail: NewEmailSender(),
		models.NotifyPush:  NewPushSender(log),
		models.NotifySMS:   NewSMSSender(log),
	}
}
