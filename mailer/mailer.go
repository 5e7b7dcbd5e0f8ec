// Package mailer delivers verification and login-confirmation links over
// SMTP. The messages carry a plain-text body with an HTML alternative.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/devteamer/authd"
)

const (
	verifySubject  = "DevTeamer - Verify your email address"
	confirmSubject = "DevTeamer - Confirm Your Login"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// SMTP sends mail through an authenticated SSL connection.
type SMTP struct {
	client *mail.Client
	from   string
	log    *slog.Logger
}

var _ authd.MailSender = (*SMTP)(nil)

// NewSMTP builds the client; no connection is made until the first send.
func NewSMTP(cfg Config, logger *slog.Logger) (*SMTP, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Address),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SMTP{
		client: client,
		from:   cfg.Address,
		log:    logger.With("component", "mailer"),
	}, nil
}

func (s *SMTP) SendVerification(ctx context.Context, to, link string) error {
	text := fmt.Sprintf(
		"Click the link below to verify your email:\n\n%s\n\n"+
			"If you didn't request this, you can safely ignore this email.\n", link)
	html := fmt.Sprintf(
		`<html><body><p>Click the link below to verify your email:</p>`+
			`<p><a href=%q>%s</a></p>`+
			`<p>If you didn't request this, you can safely ignore this email.</p></body></html>`,
		link, link)
	return s.send(ctx, to, verifySubject, text, html)
}

func (s *SMTP) SendLoginConfirm(ctx context.Context, to, link string) error {
	text := fmt.Sprintf(
		"We received a request to log in to your account.\n\n"+
			"To confirm it's you, click the link below:\n\n%s\n\n"+
			"If you didn't request this, you can safely ignore this email.\n", link)
	html := fmt.Sprintf(
		`<html><body><p>We received a request to log in to your account.</p>`+
			`<p>To confirm it's you, click the link below:</p>`+
			`<p><a href=%q>%s</a></p>`+
			`<p>If you didn't request this, you can safely ignore this email.</p></body></html>`,
		link, link)
	return s.send(ctx, to, confirmSubject, text, html)
}

func (s *SMTP) send(ctx context.Context, to, subject, text, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	s.log.Info("mail sent", "to", authd.MaskEmail(to), "subject", subject)
	return nil
}

// LogSender records sends without delivering anything. Used in development
// and tests.
type LogSender struct {
	log *slog.Logger
}

var _ authd.MailSender = (*LogSender)(nil)

// NewLogSender returns a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogSender{log: logger.With("component", "mailer")}
}

func (s *LogSender) SendVerification(_ context.Context, to, link string) error {
	s.log.Info("verification mail suppressed", "to", authd.MaskEmail(to), "link", link)
	return nil
}

func (s *LogSender) SendLoginConfirm(_ context.Context, to, link string) error {
	s.log.Info("login confirm mail suppressed", "to", authd.MaskEmail(to), "link", link)
	return nil
}
