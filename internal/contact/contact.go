// Package contact delivers portfolio contact form submissions by email.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

// Message is one contact form submission.
type Message struct {
	Name  string
	Email string
	Body  string
}

// Validate requires a name, a parseable reply address and a body.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("message is required")
	}
	// Header injection guard: name and email land in headers.
	if strings.ContainsAny(m.Name+m.Email, "\r\n") {
		return errors.New("invalid characters in name or email")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// SMTPSender sends messages through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg    SMTPConfig
	send   SendFunc
	logger *zap.Logger
}

// NewSMTPSender builds a sender. When To is empty, mail goes to User.
func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.To == "" {
		cfg.To = cfg.User
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail, logger: logger}
}

// WithSendFunc replaces the transport, for tests.
func (s *SMTPSender) WithSendFunc(fn SendFunc) *SMTPSender {
	s.send = fn
	return s
}

// Send validates and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if s.cfg.User == "" || s.cfg.Pass == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	addr := s.cfg.Host + ":" + s.cfg.Port
	if err := s.send(addr, auth, s.cfg.User, []string{s.cfg.To}, s.compose(msg)); err != nil {
		s.logger.Error("contact email failed", zap.String("relay", addr), zap.Error(err))
		return fmt.Errorf("send contact email: %w", err)
	}
	s.logger.Info("contact email sent", zap.String("from_name", msg.Name))
	return nil
}

func (s *SMTPSender) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("To: " + s.cfg.To + "\r\n")
	b.WriteString("Subject: Portfolio Contact: " + msg.Name + "\r\n")
	b.WriteString("From: " + s.cfg.User + "\r\n")
	b.WriteString("Reply-To: " + msg.Email + "\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "New contact form submission from your portfolio:\r\n\r\nName: %s\r\nEmail: %s\r\nMessage:\r\n%s\r\n\r\n---\r\nSent from your portfolio contact form\r\n",
		msg.Name, msg.Email, msg.Body)
	return []byte(b.String())
}
