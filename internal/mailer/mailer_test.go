package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/pixelfolio/apiserver/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := buildMessage("noreply@example.com", "user@example.com", "123456")

	require.Contains(t, msg, "To: user@example.com\r\n")
	require.Contains(t, msg, "From: noreply@example.com\r\n")
	require.Contains(t, msg, "Subject: "+otpSubject+"\r\n")
	require.Contains(t, msg, "Content-Type: text/html")
	require.Contains(t, msg, "123456")
	require.Contains(t, msg, "expire in <b>1 minute</b>")

	// Headers separate from the body with a blank line.
	require.True(t, strings.Contains(msg, "\r\n\r\n"))
}

func TestSendOTP_MissingCredentialsSkips(t *testing.T) {
	t.Parallel()

	m := NewSMTP(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, zap.NewNop().Sugar())
	require.NoError(t, m.SendOTP(context.Background(), "user@example.com", "123456"))
}
