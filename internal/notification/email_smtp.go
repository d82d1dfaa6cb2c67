package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpEmailSender struct {
	client *mail.SMTPServer
	from   string
	log    *slog.Logger
}

// NewSMTPEmailSender creates a new sender that uses an SMTP server.
// Port 465 uses implicit TLS, 25 and 1025 (local catchers) plain text, anything else STARTTLS.
func NewSMTPEmailSender(cfg SMTPConfig, log *slog.Logger) EmailSender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.Encryption = encryptionFor(cfg.Port)
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	return &smtpEmailSender{
		client: server,
		from:   cfg.From,
		log:    log,
	}
}

func encryptionFor(port int) mail.Encryption {
	switch port {
	case 465:
		return mail.EncryptionSSLTLS
	case 25, 1025:
		return mail.EncryptionNone
	default:
		return mail.EncryptionSTARTTLS
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := mail.NewMSG()
	email.SetFrom(s.from).AddTo(to).SetSubject(subject)
	email.SetBody(mail.TextHTML, htmlBody)
	if textBody != "" {
		email.AddAlternative(mail.TextPlain, textBody)
	}
	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}

	// KeepAlive is off and SendTimeout is set, so Send quits and closes the client on every outcome.
	smtpClient, err := s.client.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if err = email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Info("email sent via smtp", "subject", subject)
	return nil
}
