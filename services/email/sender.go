package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"notifyhub/config"
)

// Sender dispatches HTML email through the platform SMTP relay.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender is the production implementation over net/smtp.
type SMTPSender struct {
	host     string
	port     string
	from     string
	password string
}

// NewSMTPSender creates a sender from the application config.
func NewSMTPSender() *SMTPSender {
	return &SMTPSender{
		host:     config.AppConfig.SMTPHost,
		port:     config.AppConfig.SMTPPort,
		from:     config.AppConfig.SMTPFrom,
		password: config.AppConfig.SMTPPassword,
	}
}

// Send connects, authenticates and delivers one HTML message. Callers wrap
// this in the resilience registry; the sender itself makes one attempt.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := smtp.Dial(s.host + ":" + s.port)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if s.password != "" {
		auth := smtp.PlainAuth("", s.from, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}
