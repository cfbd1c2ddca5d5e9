package contact

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func capture(c *captured, err error) SendFunc {
	return func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.msg = addr, from, to, string(msg)
		return err
	}
}

func validMessage() Message {
	return Message{Name: "Ada", Email: "ada@example.com", Body: "Loved the Boston splits."}
}

func TestSMTPSenderSends(t *testing.T) {
	t.Parallel()

	var got captured
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", User: "me@example.com", Pass: "pw"}, nil).
		WithSendFunc(capture(&got, nil))

	require.NoError(t, s.Send(context.Background(), validMessage()))
	require.Equal(t, "smtp.example.com:587", got.addr)
	require.Equal(t, "me@example.com", got.from)
	require.Equal(t, []string{"me@example.com"}, got.to)
	require.Contains(t, got.msg, "Subject: Portfolio Contact: Ada\r\n")
	require.Contains(t, got.msg, "Reply-To: ada@example.com\r\n")
	require.Contains(t, got.msg, "Loved the Boston splits.")
}

func TestSMTPSenderErrors(t *testing.T) {
	t.Parallel()

	var got captured
	unconfigured := NewSMTPSender(SMTPConfig{Host: "h", Port: "25"}, nil).WithSendFunc(capture(&got, nil))
	require.ErrorIs(t, unconfigured.Send(context.Background(), validMessage()), ErrNotConfigured)

	failing := NewSMTPSender(SMTPConfig{Host: "h", Port: "25", User: "u@example.com", Pass: "p"}, nil).
		WithSendFunc(capture(&got, errors.New("relay down")))
	require.ErrorContains(t, failing.Send(context.Background(), validMessage()), "relay down")
}

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validMessage().Validate())

	m := validMessage()
	m.Email = "not-an-address"
	require.Error(t, m.Validate())

	m = validMessage()
	m.Name = "Eve\r\nBcc: everyone@example.com"
	require.Error(t, m.Validate())

	m = validMessage()
	m.Body = "   "
	require.Error(t, m.Validate())
}
