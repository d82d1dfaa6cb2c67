package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/delordemm1/lms-api/internal/notification/templates"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Content holds the message data for each channel.
// A notification can carry content for several channels at once.
type Content struct {
	EmailSubject  string
	EmailHTMLBody string
	EmailTextBody string
	SMSText       string
}

// Notification is the universal object used to send any notification.
type Notification struct {
	Recipient string // email address or E.164 phone number
	Channels  []Channel
	Content   Content
}

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMSSender delivers a single text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// Service dispatches notifications to channel senders.
type Service interface {
	// Deliver sends on every channel and waits, returning the joined channel errors.
	Deliver(ctx context.Context, n Notification) error
	// Send dispatches in the background and returns immediately. Failures are logged.
	Send(ctx context.Context, n Notification)
}

type service struct {
	log         *slog.Logger
	emailSender EmailSender
	smsSender   SMSSender
}

// NewService creates a new notification service.
func NewService(log *slog.Logger, emailSender EmailSender, smsSender SMSSender) Service {
	return &service{
		log:         log,
		emailSender: emailSender,
		smsSender:   smsSender,
	}
}

func (s *service) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, ch := range n.Channels {
		if err := s.deliverOne(ctx, ch, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

func (s *service) Send(ctx context.Context, n Notification) {
	// The request that triggered the notification may finish first.
	ctx = context.WithoutCancel(ctx)
	for _, channel := range n.Channels {
		go func(ch Channel) {
			if err := s.deliverOne(ctx, ch, n); err != nil {
				s.log.Error("failed to send notification", "channel", ch, "error", err)
			}
		}(channel)
	}
}

func (s *service) deliverOne(ctx context.Context, ch Channel, n Notification) error {
	switch ch {
	case ChannelEmail:
		if s.emailSender == nil {
			return errors.New("no email sender configured")
		}
		s.log.Info("dispatching email notification")
		return s.emailSender.Send(ctx, n.Recipient, n.Content.EmailSubject, n.Content.EmailHTMLBody, n.Content.EmailTextBody)
	case ChannelSMS:
		if s.smsSender == nil {
			return errors.New("no sms sender configured")
		}
		s.log.Info("dispatching sms notification")
		return s.smsSender.Send(ctx, n.Recipient, n.Content.SMSText)
	default:
		return fmt.Errorf("unsupported notification channel %q", ch)
	}
}

// ContentFrom maps a rendered template onto notification content.
func ContentFrom(r templates.Rendered) Content {
	return Content{
		EmailSubject:  r.Subject,
		EmailHTMLBody: r.EmailHTML,
		EmailTextBody: r.EmailText,
		SMSText:       r.SMSText,
	}
}
