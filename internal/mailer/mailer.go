package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pixelfolio/apiserver/config"
	"go.uber.org/zap"
)

const otpSubject = "Your OTP Verification Code"

// SMTP delivers OTP emails over an authenticated STARTTLS session.
// Missing credentials degrade to a logged skip so local setups work
// without a mail relay.
type SMTP struct {
	cfg    config.SMTPConfig
	logger *zap.SugaredLogger
}

// NewSMTP constructs a mailer from config.
func NewSMTP(cfg config.SMTPConfig, logger *zap.SugaredLogger) *SMTP {
	return &SMTP{cfg: cfg, logger: logger}
}

// SendOTP sends the passcode message to the address.
func (m *SMTP) SendOTP(ctx context.Context, email, code string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		m.logger.Warnw("smtp credentials not configured, skipping email", "to", email)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("start tls: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(from, email, code))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	m.logger.Infow("otp email sent", "to", email)
	return nil
}

func buildMessage(from, to, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "Subject: %s\r\n", otpSubject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, `<div style="font-family: Arial, sans-serif; padding: 20px; border: 1px solid #eee; border-radius: 10px;">
  <h2 style="color: #22c55e;">OTP Verification</h2>
  <p>Your verification code for user gallery is:</p>
  <h1 style="letter-spacing: 5px; color: #166534;">%s</h1>
  <p>This code will expire in <b>1 minute</b>.</p>
  <p>If you didn't request this, please ignore this email.</p>
</div>`, code)
	b.WriteString("\r\n")
	return b.String()
}
