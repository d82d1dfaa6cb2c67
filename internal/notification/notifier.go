package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/delordemm1/lms-api/internal/notification/templates"
)

// NotifierConfig holds what the auth messages need beyond the recipient.
type NotifierConfig struct {
	AppName       string
	FrontendURL   string
	EmailTokenTTL time.Duration
	CodeTTL       time.Duration
}

// Notifier renders and dispatches the account messages: verification and reset
// emails go out in the background, SMS codes are delivered before returning.
type Notifier struct {
	svc    Service
	engine *templates.Engine
	cfg    NotifierConfig
}

func NewNotifier(svc Service, engine *templates.Engine, cfg NotifierConfig) *Notifier {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Notifier{svc: svc, engine: engine, cfg: cfg}
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	return n.sendLink(ctx, templates.VerifyEmail, email, "/verify-email", token)
}

func (n *Notifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	return n.sendLink(ctx, templates.PasswordReset, email, "/reset-password", token)
}

func (n *Notifier) Send2FACode(ctx context.Context, phone, code string) error {
	r, err := templates.Render(ctx, n.engine, templates.SMSCode, templates.CodeData{
		AppName:  n.cfg.AppName,
		Code:     code,
		ValidFor: humanDuration(n.cfg.CodeTTL),
	})
	if err != nil {
		return fmt.Errorf("render sms code: %w", err)
	}
	return n.svc.Deliver(ctx, Notification{
		Recipient: phone,
		Channels:  []Channel{ChannelSMS},
		Content:   ContentFrom(r),
	})
}

func (n *Notifier) sendLink(ctx context.Context, h templates.Handle[templates.LinkData], email, path, token string) error {
	r, err := templates.Render(ctx, n.engine, h, templates.LinkData{
		AppName:  n.cfg.AppName,
		Link:     n.cfg.FrontendURL + path + "?token=" + url.QueryEscape(token),
		ValidFor: humanDuration(n.cfg.EmailTokenTTL),
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", h.ID(), err)
	}
	n.svc.Send(ctx, Notification{
		Recipient: email,
		Channels:  []Channel{ChannelEmail},
		Content:   ContentFrom(r),
	})
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a limited time"
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
