package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("noreply@idp.test", "user@example.com", "Your code", "123456", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, strings.HasPrefix(msg, "From: noreply@idp.test\r\nTo: user@example.com\r\nSubject: Your code\r\n"))
	assert.Contains(t, msg, "Date: Sun, 01 Mar 2026 12:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n123456"))
}

func TestSendEmail_UsesConfiguredServer(t *testing.T) {
	var gotAddr string
	var gotTo []string
	m := &mailer{host: "mail.test", port: "2525", from: "noreply@idp.test",
		send: func(addr string, _ smtp.Auth, _ string, to []string, _ []byte) error {
			gotAddr, gotTo = addr, to
			return nil
		}}

	require.NoError(t, m.SendEmail(context.Background(), "user@example.com", "hi", "body"))
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
}

func TestSendEmail_RejectsHeaderInjection(t *testing.T) {
	m := &mailer{send: func(string, smtp.Auth, string, []string, []byte) error { return nil }}
	err := m.SendEmail(context.Background(), "user@example.com\r\nBcc: x@y", "hi", "body")
	assert.Error(t, err)
}

func TestSendEmail_WrapsTransportError(t *testing.T) {
	m := &mailer{send: func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }}
	err := m.SendEmail(context.Background(), "user@example.com", "hi", "body")
	assert.ErrorContains(t, err, "refused")
}
