// Package mailer delivers registration codes to users.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender delivers a one-time code to an email address.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPConfig carries the relay settings for the production sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers codes through an authenticated SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendOTP(_ context.Context, to, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\n"+
		"Your verification code is %s. It expires in 5 minutes.\r\n", s.cfg.From, to, code)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// LogSender writes codes to the log instead of sending mail. Development and
// test environments use it so registration works without an SMTP relay.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, to, code string) error {
	s.logger.InfoContext(ctx, "otp issued (mail delivery disabled)",
		"to", to,
		"code", code,
	)
	return nil
}
